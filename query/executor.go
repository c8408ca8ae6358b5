package query

import (
	"context"
	"fmt"
	"iter"

	"github.com/gyrodb/gyro/kernel"
)

// rowSeq is a lazy row stream. A non-nil error terminates the stream; rows
// already yielded are not retracted.
type rowSeq = iter.Seq2[Row, error]

// compiled is a plan node bound to its collaborators and ready to run.
type compiled func(ctx context.Context) rowSeq

// geodesicJoinCompiler builds the execution strategy for a geodesic join.
// The VectorizedExecutor swaps in a batched strategy here; everything else
// is shared.
type geodesicJoinCompiler func(n *GeodesicJoinNode, left, right compiled, kernelName string, fn kernel.Func) compiled

// Executor interprets a plan tree against a Storage collaborator and a
// kernel registry. Plans are validated up front: kernel resolution and
// structural checks happen before the first row is produced, so a bad plan
// never yields partial output. Execution itself is single-threaded and
// lazy; callers cancel by simply stopping iteration.
type Executor struct {
	storage Storage
	kernels *kernel.Registry

	geodesicJoin geodesicJoinCompiler
}

// NewExecutor creates an executor over the given storage and kernels.
func NewExecutor(storage Storage, kernels *kernel.Registry) *Executor {
	e := &Executor{
		storage: storage,
		kernels: kernels,
	}
	e.geodesicJoin = e.scalarGeodesicJoin

	return e
}

// Stream compiles plan and returns a lazy row sequence (streamed mode:
// single pass, incremental production). Compilation errors - unknown nodes,
// unresolvable kernels - surface here, before any row is produced.
func (e *Executor) Stream(ctx context.Context, plan Node) (iter.Seq2[Row, error], error) {
	c, err := e.compile(plan)
	if err != nil {
		return nil, err
	}

	return c(ctx), nil
}

// Materialize drains the streamed pipeline into a buffered slice
// (materialized mode). Order and content are identical to Stream; the first
// error aborts and no rows are returned.
func (e *Executor) Materialize(ctx context.Context, plan Node) ([]Row, error) {
	seq, err := e.Stream(ctx, plan)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for row, err := range seq {
		if err != nil {
			return nil, err
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func (e *Executor) compile(n Node) (compiled, error) {
	switch n := n.(type) {
	case nil:
		return nil, &ErrInvalidPlanNode{Reason: "nil node"}
	case *ScanNode:
		return e.compileScan(n.Table), nil
	case *GeodesicScanNode:
		if len(n.Start) == 0 {
			return nil, &ErrInvalidPlanNode{Reason: "geodesic scan without start point"}
		}

		fn, err := e.kernelFor(n.Kernel)
		if err != nil {
			return nil, err
		}

		return e.compileGeodesicScan(n, fn), nil
	case *FilterNode:
		// Pass-through: the filter evaluates no predicate.
		return e.compile(n.Input)
	case *JoinNode:
		left, err := e.compile(n.Left)
		if err != nil {
			return nil, err
		}

		right, err := e.compile(n.Right)
		if err != nil {
			return nil, err
		}

		return compileCrossJoin(left, right), nil
	case *GeodesicJoinNode:
		left, err := e.compile(n.Left)
		if err != nil {
			return nil, err
		}

		right, err := e.compile(n.Right)
		if err != nil {
			return nil, err
		}

		name := n.Kernel
		if name == "" {
			name = kernel.Default
		}

		fn, err := e.kernelFor(name)
		if err != nil {
			return nil, err
		}

		return e.geodesicJoin(n, left, right, name, fn), nil
	case *LimitNode:
		child, err := e.compile(n.Input)
		if err != nil {
			return nil, err
		}

		return compileLimit(child, n.N), nil
	default:
		return nil, &ErrInvalidPlanNode{Reason: fmt.Sprintf("unknown node type %T", n)}
	}
}

// kernelFor resolves a kernel name, treating "" as the default. A miss is
// fatal to the whole plan; substituting another metric is never an option.
func (e *Executor) kernelFor(name string) (kernel.Func, error) {
	if name == "" {
		name = kernel.Default
	}

	fn, ok := e.kernels.Get(name)
	if !ok {
		return nil, &ErrKernelNotFound{Name: name}
	}

	return fn, nil
}

func (e *Executor) compileScan(table string) compiled {
	return func(ctx context.Context) rowSeq {
		return func(yield func(Row, error) bool) {
			rows, err := e.storage.Scan(ctx, table)
			if err != nil {
				yield(nil, fmt.Errorf("scan %q: %w", table, err))
				return
			}

			for row := range rows {
				if !yield(row, nil) {
					return
				}
			}
		}
	}
}

func (e *Executor) compileGeodesicScan(n *GeodesicScanNode, fn kernel.Func) compiled {
	scan := e.compileScan(n.Table)

	return func(ctx context.Context) rowSeq {
		return func(yield func(Row, error) bool) {
			for row, err := range scan(ctx) {
				if err != nil {
					yield(nil, err)
					return
				}

				p, ok := pointColumn(row, ColPoint)
				if !ok || len(p) != len(n.Start) {
					continue
				}

				d := fn(n.Start, p)
				if d > n.Radius {
					continue
				}

				out := row.Clone()
				out[ColDistance] = d

				if !yield(out, nil) {
					return
				}
			}
		}
	}
}

// compileCrossJoin is a nested-loop cross join: the right side is
// materialized once, the left side streams. O(|left| x |right|).
func compileCrossJoin(left, right compiled) compiled {
	return func(ctx context.Context) rowSeq {
		return func(yield func(Row, error) bool) {
			rightRows, err := drain(right(ctx))
			if err != nil {
				yield(nil, err)
				return
			}

			for lrow, lerr := range left(ctx) {
				if lerr != nil {
					yield(nil, lerr)
					return
				}

				for _, rrow := range rightRows {
					if !yield(mergeRows(lrow, rrow), nil) {
						return
					}
				}
			}
		}
	}
}

// scalarGeodesicJoin is the reference nested-loop strategy: every
// left/right pair is measured with the scalar kernel and kept when within
// the threshold (inclusive).
func (e *Executor) scalarGeodesicJoin(n *GeodesicJoinNode, left, right compiled, _ string, fn kernel.Func) compiled {
	leftCol, rightCol := joinColumns(n)

	return func(ctx context.Context) rowSeq {
		return func(yield func(Row, error) bool) {
			rightRows, err := drain(right(ctx))
			if err != nil {
				yield(nil, err)
				return
			}

			for lrow, lerr := range left(ctx) {
				if lerr != nil {
					yield(nil, lerr)
					return
				}

				lp, ok := pointColumn(lrow, leftCol)
				if !ok {
					continue
				}

				for _, rrow := range rightRows {
					rp, ok := pointColumn(rrow, rightCol)
					if !ok || len(rp) != len(lp) {
						continue
					}

					d := fn(lp, rp)
					if d > n.Threshold {
						continue
					}

					out := mergeRows(lrow, rrow)
					out[ColJoinDistance] = d

					if !yield(out, nil) {
						return
					}
				}
			}
		}
	}
}

// compileLimit yields at most n rows and stops consuming its child once n
// are produced. Short-circuit, not materialization: ending the range loop
// tears the child iterator down.
func compileLimit(child compiled, n int) compiled {
	return func(ctx context.Context) rowSeq {
		return func(yield func(Row, error) bool) {
			if n <= 0 {
				return
			}

			produced := 0
			for row, err := range child(ctx) {
				if err != nil {
					yield(nil, err)
					return
				}

				if !yield(row, nil) {
					return
				}

				produced++
				if produced >= n {
					return
				}
			}
		}
	}
}

func joinColumns(n *GeodesicJoinNode) (string, string) {
	leftCol, rightCol := n.LeftColumn, n.RightColumn
	if leftCol == "" {
		leftCol = ColPoint
	}
	if rightCol == "" {
		rightCol = ColPoint
	}

	return leftCol, rightCol
}

// mergeRows merges two row maps into a fresh one; the right side overwrites
// the left on key collision.
func mergeRows(left, right Row) Row {
	out := make(Row, len(left)+len(right))
	for k, v := range left {
		out[k] = v
	}
	for k, v := range right {
		out[k] = v
	}

	return out
}

func drain(seq rowSeq) ([]Row, error) {
	var rows []Row
	for row, err := range seq {
		if err != nil {
			return nil, err
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// pointColumn extracts an ordered numeric slice from a row column. Rows
// without a usable point are skipped by geodesic operators; heterogeneous
// row maps are expected from external storage.
func pointColumn(row Row, col string) ([]float64, bool) {
	v, ok := row[col]
	if !ok {
		return nil, false
	}

	return asVector(v)
}

func asVector(v any) ([]float64, bool) {
	switch v := v.(type) {
	case []float64:
		return v, true
	case []float32:
		out := make([]float64, len(v))
		for i, f := range v {
			out[i] = float64(f)
		}

		return out, true
	case []int:
		out := make([]float64, len(v))
		for i, n := range v {
			out[i] = float64(n)
		}

		return out, true
	case []any:
		out := make([]float64, len(v))
		for i, e := range v {
			switch e := e.(type) {
			case float64:
				out[i] = e
			case float32:
				out[i] = float64(e)
			case int:
				out[i] = float64(e)
			case int64:
				out[i] = float64(e)
			default:
				return nil, false
			}
		}

		return out, true
	default:
		return nil, false
	}
}
