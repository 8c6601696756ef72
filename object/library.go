package object

import (
	"strings"

	"github.com/zhuanglinsheng/tapas/code"
	"github.com/zhuanglinsheng/tapas/terror"
)

// Library is a top-level environment owning a compiled artifact, an
// ordered search-path list, an exposed dictionary (the value returned from
// a module's top level) and the default names registered by the host
// before any user code runs.
type Library struct {
	RefCount
	Env
	defaultNames []string
	paths        []string
	artifact     *code.Artifact
	exposed      *Dict
}

func NewLibrary() *Library {
	lib := &Library{}
	lib.initEnv(0, nil, 0, 0, 0, KindLib, lib)
	return lib
}

// SetArtifact installs a compiled artifact, sizing the slot array, the
// temporary store and the evaluation stack from its header.
func (lib *Library) SetArtifact(a *code.Artifact) {
	lib.artifact = a
	lib.TryExpand(uint32(a.Info.ObjMax))
	lib.SetTmpMax(a.Info.TmpMax)
	lib.SetRegMax(a.Info.RegMax)
}

func (lib *Library) Artifact() *code.Artifact { return lib.artifact }

// AddDefault registers a host value under name. Default names are visible
// to every compilation driven by this library and may not be assigned to.
func (lib *Library) AddDefault(name string, v Value) {
	cur := uint32(len(lib.defaultNames))
	lib.TryExpand(cur + 10)
	lib.AddObj(code.UndefNameLoc)
	lib.Env.SetObj(cur, v)
	lib.defaultNames = append(lib.defaultNames, name)
}

// AddPkg registers a fresh dictionary as a builtin package.
func (lib *Library) AddPkg(name string) *Dict {
	for _, n := range lib.defaultNames {
		if n == name {
			terror.Runtime(terror.RuntimeOther, "Library.AddPkg", name)
		}
	}
	pkg := NewDict()
	lib.AddDefault(name, Compo(pkg))
	return pkg
}

// AddPath appends each ';'-separated segment of paths to the search path,
// skipping duplicates.
func (lib *Library) AddPath(paths string) {
	for _, p := range strings.Split(paths, ";") {
		if p == "" {
			continue
		}
		seen := false
		for _, q := range lib.paths {
			if q == p {
				seen = true
				break
			}
		}
		if !seen {
			lib.paths = append(lib.paths, p)
		}
	}
}

func (lib *Library) Paths() []string        { return lib.paths }
func (lib *Library) DefaultNames() []string { return lib.defaultNames }

func (lib *Library) Exposed() *Dict { return lib.exposed }

// SetExposed installs the module's exposed dictionary, releasing any
// previous one.
func (lib *Library) SetExposed(d *Dict) {
	if lib.exposed != nil {
		lib.exposed.Release()
	}
	lib.exposed = d
}

// Recreate builds a sibling library carrying only the default
// registrations. Imports run in such siblings.
func (lib *Library) Recreate() *Library {
	sibling := NewLibrary()
	for i, name := range lib.defaultNames {
		sibling.AddDefault(name, *lib.Env.GetObj(uint32(i)))
	}
	return sibling
}

func (lib *Library) TypeName() string { return "Library" }
func (lib *Library) Kind() CompoKind  { return KindLib }
func (lib *Library) Len() int64       { return int64(lib.ObjLen()) }
func (lib *Library) Abbr() string     { return pointerString(lib.TypeName(), lib) }

func (lib *Library) Full() string {
	if lib.exposed == nil {
		return lib.Abbr()
	}
	return lib.exposed.Full()
}

// Copy is not applicable to libraries.
func (lib *Library) Copy() Composite {
	terror.Runtime(terror.RuntimeOther, "Library.Copy", "a library cannot be copied")
	return nil
}

func (lib *Library) Identical(v Composite) bool {
	o, ok := v.(*Library)
	return ok && o == lib
}

func (lib *Library) Release() {
	lib.ObjArray.ReleaseAll()
	if lib.exposed != nil {
		lib.exposed.Release()
		lib.exposed = nil
	}
	lib.artifact = nil
}

// Idx services `lib::key` and `lib[key]` through the exposed dictionary.
func (lib *Library) Idx(params []Value, out *Value) {
	if lib.exposed == nil {
		out.SetNil()
		return
	}
	lib.exposed.Idx(params, out)
}

// ISet rejects writes: the exposed dictionary is read-only from outside.
func (lib *Library) ISet(params []Value, v Value) {
	terror.Runtime(terror.RuntimeRefType, "Library.ISet", "a library is read-only")
}

// ListObjects lists the exposed keys and every name the library carries.
func (lib *Library) ListObjects() *List {
	var ls *List
	if lib.exposed != nil {
		ls = lib.exposed.Keys()
	} else {
		ls = NewList()
	}
	idx := int64(0)
	for _, name := range lib.defaultNames {
		v := Compo(NewStr(name))
		ls.Insert(&v, idx)
		idx++
	}
	if lib.artifact != nil {
		for i := uint32(len(lib.defaultNames)); i < lib.ObjLen(); i++ {
			nameLoc := lib.ObjArray.GetObj(i).NameLoc()
			if nameLoc == code.UndefNameLoc || int(nameLoc) >= len(lib.artifact.Consts.Strs) {
				continue
			}
			v := Compo(NewStr(lib.artifact.Consts.Strs[nameLoc]))
			ls.Append(&v)
		}
	}
	return ls
}

// ListPaths lists the search paths as strings.
func (lib *Library) ListPaths() *List {
	paths := NewList()
	for _, p := range lib.paths {
		v := Compo(NewStr(p))
		paths.Append(&v)
	}
	return paths
}
