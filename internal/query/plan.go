// Copyright 2026 The Ultrasearch Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package query

// Plan rewrites e into normal form: double-negation elimination, De Morgan
// push-down until every Not sits directly on a leaf, then associative
// flattening of And/Or. Plan is pure and idempotent: Plan(Plan(q)) equals
// Plan(q) for any q.
func Plan(e *Expr) *Expr {
	e = eliminateDoubleNegation(e)
	e = pushDownNot(e)
	e = flatten(e)
	return e
}

func eliminateDoubleNegation(e *Expr) *Expr {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case KindNot:
		child := eliminateDoubleNegation(e.Child)
		if child.Kind == KindNot {
			return child.Child
		}
		return &Expr{Kind: KindNot, Child: child}
	case KindAnd, KindOr:
		children := make([]*Expr, len(e.Children))
		for i, c := range e.Children {
			children[i] = eliminateDoubleNegation(c)
		}
		return &Expr{Kind: e.Kind, Children: children}
	default:
		return e
	}
}

// pushDownNot applies De Morgan's laws until every Not wraps a leaf
// (Term/Range), never an And/Or.
func pushDownNot(e *Expr) *Expr {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case KindNot:
		child := e.Child
		switch child.Kind {
		case KindAnd:
			negated := make([]*Expr, len(child.Children))
			for i, c := range child.Children {
				negated[i] = pushDownNot(&Expr{Kind: KindNot, Child: c})
			}
			return &Expr{Kind: KindOr, Children: negated}
		case KindOr:
			negated := make([]*Expr, len(child.Children))
			for i, c := range child.Children {
				negated[i] = pushDownNot(&Expr{Kind: KindNot, Child: c})
			}
			return &Expr{Kind: KindAnd, Children: negated}
		case KindNot:
			// Already eliminated by eliminateDoubleNegation, but guard
			// against a direct pushDownNot(e) call on unnormalized input.
			return pushDownNot(child.Child)
		default:
			return &Expr{Kind: KindNot, Child: child}
		}
	case KindAnd, KindOr:
		children := make([]*Expr, len(e.Children))
		for i, c := range e.Children {
			children[i] = pushDownNot(c)
		}
		return &Expr{Kind: e.Kind, Children: children}
	default:
		return e
	}
}

// flatten collapses nested And-of-And / Or-of-Or into one level, and
// collapses a single-child And/Or down to its child.
func flatten(e *Expr) *Expr {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case KindNot:
		return &Expr{Kind: KindNot, Child: flatten(e.Child)}
	case KindAnd, KindOr:
		var flat []*Expr
		for _, c := range e.Children {
			fc := flatten(c)
			if fc.Kind == e.Kind {
				flat = append(flat, fc.Children...)
			} else {
				flat = append(flat, fc)
			}
		}
		if len(flat) == 1 {
			return flat[0]
		}
		return &Expr{Kind: e.Kind, Children: flat}
	default:
		return e
	}
}
