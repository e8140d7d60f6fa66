// Package conditional implements the expression language used to decide
// whether a conditional clause in a configuration document holds.
//
// An expression combines parameters, literals, and operators, e.g.
// "FRP == 1 and satellite == 'T'". Parameters come from an Env supplied at
// evaluation time; a parameter that the Env does not define evaluates to the
// empty string rather than failing. Operators bind in this order, tightest
// first:
//
//	+x -x                      sign
//	* ** / // %                multiplicative
//	+ -                        additive
//	< <= > >= == != is         comparison, chained as in a < b < c
//	not
//	and
//	or
//
// Evaluation is eager: every operand of and, or, and not is evaluated before
// the operator applies. Operators never coerce between kinds of values, so
// "not 1" and "'a' + 'b'" are type errors.
//
// Parse an expression once and evaluate it against many environments, or
// use a Cache to share parsed expressions keyed by their text.
package conditional
