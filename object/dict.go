package object

import (
	"sort"
	"strings"

	"github.com/zhuanglinsheng/tapas/terror"
)

// Dict is the string-keyed map composite created by `{...}` literals. It
// owns one reference to every composite value. Reading a missing key
// yields nil rather than an error.
type Dict struct {
	RefCount
	m map[string]Value
}

func NewDict() *Dict {
	return &Dict{m: make(map[string]Value)}
}

func (d *Dict) TypeName() string { return "Dictionary" }
func (d *Dict) Kind() CompoKind  { return KindDict }
func (d *Dict) Len() int64       { return int64(len(d.m)) }

func (d *Dict) Abbr() string { return pointerString(d.TypeName(), d) }

func (d *Dict) Full() string {
	var b strings.Builder
	b.WriteString("{\n")
	for _, k := range d.sortedKeys() {
		v := d.m[k]
		b.WriteString("\t\"" + k + "\" : ")
		b.WriteString(v.Abbr() + ",\n")
	}
	b.WriteString("}")
	return b.String()
}

func (d *Dict) sortedKeys() []string {
	keys := make([]string, 0, len(d.m))
	for k := range d.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (d *Dict) Copy() Composite {
	cp := NewDict()
	for k, v := range d.m {
		cp.m[k] = v
		if v.IsCompo() {
			v.Compo().AddRef()
		}
	}
	return cp
}

// Identical compares dicts by identity only.
func (d *Dict) Identical(v Composite) bool {
	o, ok := v.(*Dict)
	return ok && o == d
}

func (d *Dict) Release() {
	for k, v := range d.m {
		v.DecRefClear()
		delete(d.m, k)
	}
}

// Get reads a key without reference transfer; missing keys yield nil and
// false.
func (d *Dict) Get(key string) (Value, bool) {
	v, ok := d.m[key]
	return v, ok
}

// Set binds key to v, replacing and releasing any previous binding.
func (d *Dict) Set(key string, v Value) {
	if old, ok := d.m[key]; ok {
		if old.IsCompo() && v.IsCompo() && old.Compo() == v.Compo() {
			return
		}
		old.DecRefClear()
	}
	if v.IsCompo() {
		v.Compo().AddRef()
	}
	var stored Value
	stored.Set(v)
	d.m[key] = stored
}

func dictKey(params []Value, fn string) string {
	if len(params) != 1 {
		terror.Runtime(terror.RuntimeParamsCtr, fn, "1 parameter")
	}
	if !params[0].IsCompo() || params[0].Compo().Kind() != KindStr {
		terror.Runtime(terror.RuntimeParamsType, fn, "should be 'String'")
	}
	return params[0].Compo().(*Str).String()
}

// Idx reads by string key; missing keys read as nil.
func (d *Dict) Idx(params []Value, out *Value) {
	if v, ok := d.m[dictKey(params, "Dict.Idx")]; ok {
		*out = v
	} else {
		out.SetNil()
	}
}

// ISet writes by string key.
func (d *Dict) ISet(params []Value, v Value) {
	d.Set(dictKey(params, "Dict.ISet"), v)
}

// AppendPair installs a pair's first half (a string) as key and second
// half as value; dict literals are built this way.
func (d *Dict) AppendPair(ele *Value) {
	if !ele.IsCompo() || ele.Compo().Kind() != KindPair {
		terror.Runtime(terror.RuntimeParamsType, "Dict.AppendPair", "should be 'Pair'")
	}
	p := ele.Compo().(*Pair)
	first := p.First()
	d.ISet([]Value{first}, p.Second())
}

// Delete removes a binding by string key.
func (d *Dict) Delete(key *Value) {
	k := dictKey([]Value{*key}, "Dict.Delete")
	if old, ok := d.m[k]; ok {
		old.DecRefClear()
		delete(d.m, k)
	}
}

// Keys lists the keys as fresh strings, sorted for stable rendering.
func (d *Dict) Keys() *List {
	keys := NewList()
	for _, k := range d.sortedKeys() {
		v := Compo(NewStr(k))
		keys.Append(&v)
	}
	return keys
}

// Values lists the values, sharing references.
func (d *Dict) Values() *List {
	vals := NewList()
	for _, k := range d.sortedKeys() {
		v := d.m[k]
		vals.Append(&v)
	}
	return vals
}

// AddHostFn registers a general host function under fname. Used by the
// session to populate builtin packages.
func (d *Dict) AddHostFn(fname string, f HostFn, nparams uint8) {
	d.Set(fname, Compo(NewHostFunc(f, fname, nparams)))
}

// AddSessFn registers a session-level host function under fname.
func (d *Dict) AddSessFn(fname string, f SessFn) {
	d.Set(fname, Compo(NewSessFunc(f, fname)))
}
