// SPDX-License-Identifier: MIT

// Command lvsparse-bench sweeps matrix density and times every stage of the
// three staged operations on random inputs:
//
//	dense -> sparse   size, analyze, convert
//	SpVV              first row of the matrix against a random vector
//	SDDMM             random A (rows×k) and B (k×cols) sampled on the
//	                  pattern produced by the conversion
//
// Results are printed as a table; -out also renders a chart of stage time
// versus density. With -webgpu the dense input is additionally round-tripped
// through a WebGPU adapter and the transfer time is reported.
//
// Usage:
//
//	lvsparse-bench -rows 1024 -cols 1024 -k 64 -type r32f -format csr \
//	    -densities 0.01,0.05,0.1 -out sweep.png
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/lvsparse/device"
	"github.com/katalvlaran/lvsparse/device/wgpudev"
	"github.com/katalvlaran/lvsparse/dtype"
	"github.com/katalvlaran/lvsparse/hostio"
	"github.com/katalvlaran/lvsparse/sparse"
)

type config struct {
	rows, cols, k int
	typ           dtype.DataType
	format        sparse.Format
	densities     []float64
	out           string
	webgpu        bool
	seed          int64
	workers       int
	verbose       bool
}

// result is one row of the sweep.
type result struct {
	density  float64
	nnz      int64
	analyze  time.Duration
	convert  time.Duration
	spvv     time.Duration
	sddmm    time.Duration
	transfer time.Duration // zero unless -webgpu
	dot      complex128
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err = run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "lvsparse-bench:", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (config, error) {
	fs := flag.NewFlagSet("lvsparse-bench", flag.ContinueOnError)
	var (
		cfg       config
		typ       string
		format    string
		densities string
	)
	fs.IntVar(&cfg.rows, "rows", 512, "matrix rows")
	fs.IntVar(&cfg.cols, "cols", 512, "matrix columns")
	fs.IntVar(&cfg.k, "k", 32, "inner dimension of the SDDMM operands")
	fs.StringVar(&typ, "type", "r32f", "value type: r16f, r32f, r64f, c32f, c64f")
	fs.StringVar(&format, "format", "csr", "sparse format: csr, csc, coo")
	fs.StringVar(&densities, "densities", "0.01,0.05,0.1,0.2", "comma-separated densities in (0, 1]")
	fs.StringVar(&cfg.out, "out", "", "write a PNG/SVG/PDF chart of stage times to this path")
	fs.BoolVar(&cfg.webgpu, "webgpu", false, "round-trip the dense input through a WebGPU adapter")
	fs.Int64Var(&cfg.seed, "seed", 1, "random seed")
	fs.IntVar(&cfg.workers, "workers", sparse.DefaultWorkers, "kernel parallelism (0 = GOMAXPROCS)")
	fs.BoolVar(&cfg.verbose, "v", false, "debug logging to stderr")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	var err error
	if cfg.typ, err = dtype.ParseDataType(typ); err != nil {
		return cfg, err
	}
	if cfg.format, err = sparse.ParseFormat(format); err != nil {
		return cfg, err
	}
	if cfg.densities, err = parseDensities(densities); err != nil {
		return cfg, err
	}
	if cfg.rows < 1 || cfg.cols < 1 || cfg.k < 1 || cfg.workers < 0 {
		return cfg, errors.New("rows, cols and k must be positive; workers non-negative")
	}

	return cfg, nil
}

func parseDensities(s string) ([]float64, error) {
	var out []float64
	for _, f := range strings.Split(s, ",") {
		d, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("density %q: %w", f, err)
		}
		if d <= 0 || d > 1 {
			return nil, fmt.Errorf("density %v outside (0, 1]", d)
		}
		out = append(out, d)
	}

	return out, nil
}

func run(cfg config) error {
	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	dc := device.NewContext(device.WithLogger(log))
	defer dc.Close()
	h, err := sparse.NewHandle(dc, sparse.WithWorkers(cfg.workers))
	if err != nil {
		return err
	}

	var mirror *wgpudev.Mirror
	if cfg.webgpu {
		mirror, err = wgpudev.Open(wgpudev.WithLogger(log))
		switch {
		case errors.Is(err, wgpudev.ErrNoAdapter):
			log.Warn("webgpu unavailable, skipping transfers", "err", err)
		case err != nil:
			return err
		default:
			defer mirror.Close()
		}
	}

	rng := rand.New(rand.NewSource(cfg.seed))
	results := make([]result, 0, len(cfg.densities))
	for _, d := range cfg.densities {
		r, err := sweepOne(h, mirror, rng, cfg, d)
		if err != nil {
			return fmt.Errorf("density %v: %w", d, err)
		}
		results = append(results, r)
	}

	printTable(os.Stdout, cfg, results)
	if cfg.out != "" {
		if err = writeChart(cfg, results); err != nil {
			return err
		}
		log.Info("chart written", "path", cfg.out)
	}

	return nil
}

// sweepOne runs all three operations for one density.
func sweepOne(h *sparse.Handle, mirror *wgpudev.Mirror, rng *rand.Rand, cfg config, density float64) (result, error) {
	dc := h.Context()
	ctx := context.Background()
	r := result{density: density}

	host := hostio.RandomDense(rng, cfg.rows, cfg.cols, density)
	a, err := hostio.UploadDense(dc, host, cfg.typ, sparse.RowMajor)
	if err != nil {
		return r, err
	}
	if mirror != nil {
		if r.transfer, err = roundTrip(dc, mirror, a.Values()); err != nil {
			return r, err
		}
	}

	b, err := allocTarget(dc, cfg)
	if err != nil {
		return r, err
	}
	if r.analyze, r.convert, err = timeDenseToSparse(h, a, b); err != nil {
		return r, err
	}
	r.nnz = b.NNZ()

	if r.dot, r.spvv, err = timeSpVV(h, rng, cfg, host); err != nil {
		return r, err
	}
	if r.sddmm, err = timeSDDMM(h, rng, cfg, b); err != nil {
		return r, err
	}

	return r, h.Synchronize(ctx)
}

func allocTarget(dc *device.Context, cfg config) (*sparse.SpMat, error) {
	rows, cols := int64(cfg.rows), int64(cfg.cols)
	switch cfg.format {
	case sparse.CSC:
		return hostio.AllocCSCFor(dc, rows, cols, dtype.Index32, dtype.BaseZero, cfg.typ)
	case sparse.COO:
		return hostio.AllocCOOFor(dc, rows, cols, dtype.Index32, dtype.BaseZero, cfg.typ)
	default:
		return hostio.AllocCSRFor(dc, rows, cols, dtype.Index32, dtype.BaseZero, cfg.typ)
	}
}

// timeDenseToSparse runs the staged protocol; convert time includes the
// wait for its kernel.
func timeDenseToSparse(h *sparse.Handle, a *sparse.DnMat, b *sparse.SpMat) (analyze, convert time.Duration, err error) {
	dc := h.Context()
	n, err := h.SizeDenseToSparse(a, b, sparse.DenseToSparseAlgDefault)
	if err != nil {
		return 0, 0, err
	}
	scratch, err := dc.Alloc(n, "dense2sparse.scratch")
	if err != nil {
		return 0, 0, err
	}
	defer dc.Free(scratch)

	start := time.Now()
	if err = h.AnalyzeDenseToSparse(a, b, sparse.DenseToSparseAlgDefault, scratch); err != nil {
		return 0, 0, err
	}
	analyze = time.Since(start)

	if err = hostio.AttachArrays(dc, b); err != nil {
		return 0, 0, err
	}
	start = time.Now()
	if _, err = h.ConvertDenseToSparse(a, b, sparse.DenseToSparseAlgDefault, scratch); err != nil {
		return 0, 0, err
	}
	if err = h.Synchronize(context.Background()); err != nil {
		return 0, 0, err
	}

	return analyze, time.Since(start), nil
}

// spvvCompute picks the accumulation type for SpVV inputs of type t.
func spvvCompute(t dtype.DataType) dtype.DataType {
	if t == dtype.R16F {
		return dtype.R32F
	}

	return t
}

// timeSpVV takes the first row of host as the sparse vector.
func timeSpVV(h *sparse.Handle, rng *rand.Rand, cfg config, host *mat.Dense) (complex128, time.Duration, error) {
	dc := h.Context()
	var (
		idx  []int64
		vals []complex128
	)
	for j := 0; j < cfg.cols; j++ {
		if v := host.At(0, j); v != 0 {
			idx = append(idx, int64(j))
			vals = append(vals, complex(v, 0))
		}
	}
	x, err := hostio.UploadSpVec(dc, int64(cfg.cols), idx, vals, dtype.Index32, dtype.BaseZero, cfg.typ)
	if err != nil {
		return 0, 0, err
	}
	yv := make([]complex128, cfg.cols)
	for i := range yv {
		yv[i] = complex(rng.Float64(), 0)
	}
	y, err := hostio.UploadVector(dc, yv, cfg.typ)
	if err != nil {
		return 0, 0, err
	}

	start := time.Now()
	v, err := h.SpVV(context.Background(), sparse.NonTranspose, x, y, spvvCompute(cfg.typ))

	return v, time.Since(start), err
}

// timeSDDMM samples random A·B on the pattern of c.
func timeSDDMM(h *sparse.Handle, rng *rand.Rand, cfg config, c *sparse.SpMat) (time.Duration, error) {
	dc := h.Context()
	a, err := hostio.UploadDense(dc, hostio.RandomDense(rng, cfg.rows, cfg.k, 1), cfg.typ, sparse.RowMajor)
	if err != nil {
		return 0, err
	}
	b, err := hostio.UploadDense(dc, hostio.RandomDense(rng, cfg.k, cfg.cols, 1), cfg.typ, sparse.ColMajor)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	err = h.SDDMM(context.Background(), sparse.NonTranspose, sparse.NonTranspose, 1, a, b, 0, c, cfg.typ)

	return time.Since(start), err
}

// roundTrip pushes buf to the adapter and pulls it back into a fresh buffer.
func roundTrip(dc *device.Context, m *wgpudev.Mirror, buf *device.Buffer) (time.Duration, error) {
	back, err := dc.Alloc(buf.Len(), "webgpu.back")
	if err != nil {
		return 0, err
	}
	defer dc.Free(back)

	start := time.Now()
	r, err := m.Push(dc, buf)
	if err != nil {
		return 0, err
	}
	defer r.Release()
	if err = m.Pull(dc, r, back); err != nil {
		return 0, err
	}

	return time.Since(start), nil
}

func printTable(w *os.File, cfg config, results []result) {
	fmt.Fprintf(w, "%dx%d %v %v k=%d\n", cfg.rows, cfg.cols, cfg.typ, cfg.format, cfg.k)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "density\tnnz\tanalyze\tconvert\tspvv\tsddmm\twebgpu\tdot\t")
	for _, r := range results {
		transfer := "-"
		if r.transfer > 0 {
			transfer = r.transfer.String()
		}
		fmt.Fprintf(tw, "%.3f\t%d\t%v\t%v\t%v\t%v\t%s\t%.4g\t\n",
			r.density, r.nnz, r.analyze, r.convert, r.spvv, r.sddmm, transfer, real(r.dot))
	}
	tw.Flush()
}
