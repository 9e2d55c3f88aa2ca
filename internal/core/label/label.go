// Package label interns identity tokens (phase names, schedule names) into
// dense integer ids. Tokens compare by dynamic type and value, so the string
// "update" and a typed constant Stage("update") are different labels.
package label

import (
	"fmt"
	"reflect"
)

// ID is an interned token. Ids are dense and assigned in first-seen order.
type ID uint32

// Registry is not safe for concurrent mutation.
type Registry struct {
	ids    map[any]ID
	tokens []any
}

func NewRegistry() *Registry {
	return &Registry{ids: make(map[any]ID, 8)}
}

// Intern returns the id of token, registering it if new. The bool reports
// whether the token was already known. Panics on nil or non-comparable tokens.
func (r *Registry) Intern(token any) (ID, bool) {
	mustComparable(token)
	if id, ok := r.ids[token]; ok {
		return id, true
	}
	id := ID(len(r.tokens))
	r.ids[token] = id
	r.tokens = append(r.tokens, token)
	return id, false
}

// Lookup returns the id of a registered token.
func (r *Registry) Lookup(token any) (ID, bool) {
	if !isComparable(token) {
		return 0, false
	}
	id, ok := r.ids[token]
	return id, ok
}

// Token returns the value interned as id.
func (r *Registry) Token(id ID) any {
	if int(id) >= len(r.tokens) {
		return nil
	}
	return r.tokens[id]
}

// Name renders id for logs and errors.
func (r *Registry) Name(id ID) string {
	t := r.Token(id)
	if t == nil {
		return fmt.Sprintf("#%d", id)
	}
	return Describe(t)
}

func (r *Registry) Len() int { return len(r.tokens) }

// Describe renders a token with its type, e.g. `main.Stage(update)`.
func Describe(token any) string {
	if s, ok := token.(string); ok {
		return s
	}
	return fmt.Sprintf("%T(%v)", token, token)
}

func mustComparable(token any) {
	if token == nil {
		panic("label: nil token")
	}
	if !isComparable(token) {
		panic(fmt.Sprintf("label: token of type %s is not comparable", reflect.TypeOf(token)))
	}
}

// isComparable checks the dynamic value, so a struct whose interface field
// holds a slice is rejected like a slice itself.
func isComparable(token any) bool {
	return token != nil && reflect.ValueOf(token).Comparable()
}
