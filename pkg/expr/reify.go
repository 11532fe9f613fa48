package expr

import (
	"mercator-hq/cellguard/pkg/errcode"
	"mercator-hq/cellguard/pkg/values"
)

// Reify attaches host-supplied value columns to the node. expectRows is the
// current input frame's row count, or a negative value when the engine has
// no active frame to validate against (the count is re-checked at
// propagation time; aggregates reify one value per group and are exempt
// here).
//
// Column references reify into a positional index carried as a single
// integer cell.
func (e *Expr) Reify(cols []values.Column, expectRows int) error {
	if len(cols) == 0 {
		return errcode.New(errcode.InvalidOperation, "reify payload carries no columns")
	}

	switch e.Kind {
	case KindColumn:
		idx, ok := singleIndex(cols)
		if !ok {
			return errcode.New(errcode.InvalidOperation, "column reification expects a single integer cell")
		}
		e.mu.Lock()
		e.Column = ColumnIdent{Index: idx, ByIndex: true}
		e.mu.Unlock()
		return nil

	case KindTernary, KindFilter:
		for _, c := range cols {
			for _, v := range c.Values {
				if v.Kind != values.KindBool && v.Kind != values.KindNull {
					return errcode.New(errcode.InvalidOperation,
						"%s condition must reify booleans, got kind %d", e.Kind, v.Kind)
				}
			}
		}
		if expectRows >= 0 && len(cols[0].Values) != expectRows {
			return errcode.New(errcode.InvalidOperation,
				"reified %d values for %d rows", len(cols[0].Values), expectRows)
		}

	case KindBinary, KindApply:
		if expectRows >= 0 && len(cols[0].Values) != expectRows {
			return errcode.New(errcode.InvalidOperation,
				"reified %d values for %d rows", len(cols[0].Values), expectRows)
		}
		for _, c := range cols[1:] {
			if len(c.Values) != len(cols[0].Values) {
				return errcode.New(errcode.InvalidOperation, "reified columns disagree on length")
			}
		}

	case KindAgg:
		// One value per group; the group count is only known once the
		// aggregation's proxy arrives, so the check happens there.

	default:
		return errcode.New(errcode.InvalidOperation,
			"%s expressions do not take reified values", e.Kind)
	}

	e.mu.Lock()
	e.reified = cols
	e.mu.Unlock()
	return nil
}

// singleIndex extracts the positional index a column reification carries.
func singleIndex(cols []values.Column) (int, bool) {
	if len(cols) != 1 || len(cols[0].Values) != 1 {
		return 0, false
	}
	switch v := cols[0].Values[0]; v.Kind {
	case values.KindInt:
		if v.Int < 0 {
			return 0, false
		}
		return int(v.Int), true
	case values.KindUint:
		return int(v.Uint), true
	default:
		return 0, false
	}
}

// condAt reads the reified condition for one row. A single reified value
// broadcasts to every row; a missing row is false.
func (e *Expr) condAt(row int) (bool, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.reified == nil {
		return false, false
	}
	vals := e.reified[0].Values
	switch {
	case len(vals) == 1:
		return vals[0].Truthy(), true
	case row < len(vals):
		return vals[row].Truthy(), true
	default:
		return false, true
	}
}

// operandAt reads the reified operand value of column col at one row.
func (e *Expr) operandAt(col, row int) (values.Value, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.reified == nil || col >= len(e.reified) || row >= len(e.reified[col].Values) {
		return values.Null, false
	}
	return e.reified[col].Values[row], true
}
