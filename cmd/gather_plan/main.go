// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// gather_plan prints how a gather is configured for a device backend: the resolved geometry, the launch plan
// and the kernel configuration. Optionally, it executes it a number of times.
//
// Example:
//
//	gather_plan -dict=2,5,4,3 -indices=2,6 -axis=2 -batch_dims=1 -runs=100
package main

import (
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gatherop/backends"
	_ "github.com/gomlx/gatherop/backends/cpu"
	"github.com/gomlx/gatherop/pkg/core/dtypes"
	"github.com/gomlx/gatherop/pkg/core/dtypes/bfloat16"
	"github.com/gomlx/gatherop/pkg/core/graph"
	"github.com/gomlx/gatherop/pkg/core/shapes"
	"github.com/gomlx/gatherop/pkg/gather"
	"github.com/gomlx/gatherop/pkg/ops"
	"github.com/gomlx/gatherop/pkg/support/xslices"
	"github.com/janpfeifer/must"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/x448/float16"
	"k8s.io/klog/v2"
)

var (
	flagBackend = flag.String("backend", "",
		fmt.Sprintf("Backend configuration, formatted as \"<backend_name>:<backend_config>\". "+
			"If empty, uses $%s or the default backend.", backends.GATHER_BACKEND))
	flagDict         = xslices.Flag("dict", []int{4, 3}, "Comma-separated dimensions of the dictionary. Empty for a scalar.", parseDim)
	flagDType        = flag.String("dtype", "Float32", "DType of the dictionary.")
	flagIndices      = xslices.Flag("indices", []int{2}, "Comma-separated dimensions of the indices. Empty for a scalar.", parseDim)
	flagIndicesDType = flag.String("indices_dtype", "Int32", "DType of the indices: Int32 or Int64.")
	flagAxis         = flag.Int("axis", 0, "Axis of the dictionary to gather. Negative values count from the end.")
	flagBatchDims    = flag.Int("batch_dims", 0, "Number of batch dimensions. If not 0, a version 7 gather is used.")
	flagVersion      = flag.Int("version", 0, "Gather version: 1 or 7. If 0, it is selected from -batch_dims.")
	flagRuns         = flag.Int("runs", 0, "Number of times to execute the gather.")
	flagColor        = flag.Bool("color", true, "Use colors in the output, if the terminal supports it.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if !*flagColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	node, err := buildNode()
	if err != nil {
		klog.Errorf("Invalid gather: %+v", err)
		os.Exit(1)
	}
	var backend backends.Backend
	if *flagBackend == "" {
		backend = must.M1(backends.New())
	} else {
		backend = must.M1(backends.NewWithConfig(*flagBackend))
	}
	defer backend.Finalize()
	op, err := ops.New(node.OpName(), backend, node)
	if err != nil {
		klog.Errorf("Failed to configure %s on backend %q: %+v", node, backend.Name(), err)
		os.Exit(1)
	}
	report(backend, node, op.(*gather.Op))
	if *flagRuns > 0 {
		run(backend, node, op)
	}
}

// parseDim parses one dimension of a -dict or -indices flag.
func parseDim(value string) (int, error) {
	dim, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, errors.Wrapf(err, "invalid dimension %q", value)
	}
	if dim < 0 {
		return 0, errors.Errorf("invalid dimension %d, it must be >= 0", dim)
	}
	return dim, nil
}

// buildNode creates the gather node from the flags. Invalid shapes are returned as errors.
func buildNode() (node *graph.Node, err error) {
	dtype, err := dtypes.FromName(*flagDType)
	if err != nil {
		return nil, err
	}
	indicesDType, err := dtypes.FromName(*flagIndicesDType)
	if err != nil {
		return nil, err
	}
	version := *flagVersion
	if version == 0 {
		version = 1
		if *flagBatchDims != 0 {
			version = 7
		}
	}
	err = exceptions.TryCatch[error](func() {
		dictionary := shapes.Make(dtype, *flagDict...)
		indices := shapes.Make(indicesDType, *flagIndices...)
		switch version {
		case 1:
			node = graph.Gather(dictionary, indices, *flagAxis)
		case 7:
			node = graph.GatherV7(dictionary, indices, *flagAxis, *flagBatchDims)
		default:
			exceptions.Panicf("unknown gather version %d, only 1 and 7 are supported", version)
		}
	})
	return
}

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)

	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 0, 4)
)

func newPlainTable() *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if row == lgtable.HeaderRow {
				return headerRowStyle
			}
			if row%2 == 0 {
				s = oddRowStyle
			} else {
				s = evenRowStyle
			}
			if col == 0 {
				s = s.Align(lipgloss.Right)
			} else {
				s = s.Align(lipgloss.Left)
			}
			return
		})
}

func report(backend backends.Backend, node *graph.Node, op *gather.Op) {
	caps := backend.Capabilities()
	fmt.Println(titleStyle.Render(node.String()))
	table := newPlainTable().Headers("Backend", backend.Name())
	table.Row("description", backend.Description())
	table.Row("max threads per block", humanize.Comma(int64(caps.MaxThreadsPerBlock)))
	table.Row("max grid", fmt.Sprintf("%s x %s x %s", humanize.Comma(int64(caps.MaxGridSize[0])),
		humanize.Comma(int64(caps.MaxGridSize[1])), humanize.Comma(int64(caps.MaxGridSize[2]))))
	fmt.Println(table.Render())

	g := op.Geometry()
	table = newPlainTable().Headers("Geometry", "")
	for _, row := range []struct {
		name  string
		value uint32
	}{
		{"num dicts", g.NumDicts},
		{"index range", g.IndexRange},
		{"data length", g.DataLength},
		{"indices size", g.IndicesSize},
		{"out size", g.OutSize},
		{"batch count", g.BatchCount},
		{"dicts batch stride", g.DictsBatchStride},
		{"indices batch stride", g.IndicesBatchStride},
		{"out batch stride", g.OutBatchStride},
	} {
		table.Row(row.name, humanize.Comma(int64(row.value)))
	}
	fmt.Println(table.Render())

	plan := op.Plan()
	table = newPlainTable().Headers("Launch plan", plan.Strategy.String())
	table.Row("num chunks", humanize.Comma(int64(plan.NumChunks)))
	table.Row("grid", fmt.Sprintf("%d x %d x %d", plan.Grid[0], plan.Grid[1], plan.Grid[2]))
	table.Row("threads per block", humanize.Comma(int64(plan.ThreadsPerBlock)))
	table.Row("threads", humanize.Comma(int64(plan.NumThreads())))
	output := node.OutputShape(0)
	table.Row("output", output.String())
	table.Row("output bytes", humanize.Bytes(uint64(output.Memory())))
	fmt.Println(table.Render())
}

// iotaFlat returns a flat slice of dtype with values 0, 1, 2, ..., converted to dtype.
func iotaFlat(dtype dtypes.DType, size int) any {
	flat := reflect.MakeSlice(reflect.SliceOf(dtype.GoType()), size, size)
	for i := range size {
		v := flat.Index(i)
		switch {
		case dtype == dtypes.Bool:
			v.SetBool(i%2 == 1)
		case dtype == dtypes.Float16:
			v.Set(reflect.ValueOf(float16.Fromfloat32(float32(i))))
		case dtype == dtypes.BFloat16:
			v.Set(reflect.ValueOf(bfloat16.FromFloat32(float32(i))))
		case dtype.IsFloat():
			v.SetFloat(float64(i))
		case dtype.IsComplex():
			v.SetComplex(complex(float64(i), 0))
		case dtype.IsUnsigned():
			v.SetUint(uint64(i))
		default:
			v.SetInt(int64(i))
		}
	}
	return flat.Interface()
}

// run executes the gather -runs times, with an iota dictionary and indices cycling over the gathered axis.
func run(backend backends.Backend, node *graph.Node, op ops.Operation) {
	dictShape, indicesShape, outShape := node.InputShape(0), node.InputShape(1), node.OutputShape(0)
	dictionary := must.M1(backend.BufferFromFlatData(iotaFlat(dictShape.DType, dictShape.Size()), dictShape))
	indexRange := dictShape.Dim(node.Axis())
	indicesFlat := reflect.ValueOf(iotaFlat(indicesShape.DType, indicesShape.Size()))
	for i := range indicesFlat.Len() {
		indicesFlat.Index(i).SetInt(int64(i % max(indexRange, 1)))
	}
	indices := must.M1(backend.BufferFromFlatData(indicesFlat.Interface(), indicesShape))
	axis := must.M1(backend.BufferFromFlatData([]int64{int64(node.Axis())}, graph.AxisShape))
	output := must.M1(backend.NewBuffer(outShape))

	stream := backend.NewStream()
	defer stream.Finalize()
	bar := progressbar.NewOptions(*flagRuns,
		progressbar.OptionSetDescription("Gather"),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("runs"),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
	)
	start := time.Now()
	for range *flagRuns {
		op.Execute(stream, []backends.Buffer{dictionary, indices, axis}, []backends.Buffer{output})
		must.M(stream.Synchronize())
		_ = bar.Add(1)
	}
	elapsed := max(time.Since(start), time.Microsecond)
	_ = bar.Finish()
	fmt.Println()

	table := newPlainTable().Headers("Runs", humanize.Comma(int64(*flagRuns)))
	table.Row("total time", elapsed.String())
	table.Row("time per run", (elapsed / time.Duration(*flagRuns)).String())
	table.Row("bytes per second", humanize.Bytes(uint64(float64(outShape.Memory())*float64(*flagRuns)/elapsed.Seconds())))
	fmt.Println(table.Render())
}
