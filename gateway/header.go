/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package gateway

import "strings"

// FuncHeaderRange is the callback run by Header.Range for each field in wire
// order. Returning false stops the iteration.
type FuncHeaderRange func(key string, value string) bool

// Header is an ordered, case-preserving HTTP field set. Lookups are case
// insensitive; the wire spelling of the first occurrence of a name is kept.
// Duplicate fields are preserved in order; Get joins them with ", " except
// for the Set-Cookie class of fields where joining would change semantics.
type Header interface {
	// Add appends a field, keeping any existing fields of the same name.
	Add(key string, value string)

	// Set replaces all fields of the given name with a single field.
	Set(key string, value string)

	// Del removes all fields of the given name.
	Del(key string)

	// Get returns the field value, duplicates joined with ", ". Fields of
	// the Set-Cookie class return only the first occurrence.
	Get(key string) string

	// Values returns all values of the given name in wire order.
	Values(key string) []string

	// Has reports whether at least one field of the given name exists.
	Has(key string) bool

	// Len returns the number of fields, duplicates counted.
	Len() int

	// Range iterates fields in wire order.
	Range(fct FuncHeaderRange)
}

// NewHeader returns an empty Header.
func NewHeader() Header {
	return &header{}
}

type headerField struct {
	key string
	val string
}

type header struct {
	fld []headerField
}

func isCookieClass(key string) bool {
	return strings.EqualFold(key, "Set-Cookie") || strings.EqualFold(key, "Cookie")
}

func (o *header) Add(key string, value string) {
	o.fld = append(o.fld, headerField{
		key: key,
		val: value,
	})
}

func (o *header) Set(key string, value string) {
	o.Del(key)
	o.Add(key, value)
}

func (o *header) Del(key string) {
	var res = o.fld[:0]

	for _, f := range o.fld {
		if !strings.EqualFold(f.key, key) {
			res = append(res, f)
		}
	}

	o.fld = res
}

func (o *header) Get(key string) string {
	var val []string

	for _, f := range o.fld {
		if strings.EqualFold(f.key, key) {
			if isCookieClass(key) {
				return f.val
			}
			val = append(val, f.val)
		}
	}

	return strings.Join(val, ", ")
}

func (o *header) Values(key string) []string {
	var val []string

	for _, f := range o.fld {
		if strings.EqualFold(f.key, key) {
			val = append(val, f.val)
		}
	}

	return val
}

func (o *header) Has(key string) bool {
	for _, f := range o.fld {
		if strings.EqualFold(f.key, key) {
			return true
		}
	}

	return false
}

func (o *header) Len() int {
	return len(o.fld)
}

func (o *header) Range(fct FuncHeaderRange) {
	if fct == nil {
		return
	}

	for _, f := range o.fld {
		if !fct(f.key, f.val) {
			return
		}
	}
}
