package code

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/zhuanglinsheng/tapas/terror"
)

func sampleArtifact() *Artifact {
	var cmds Instrs
	cmds.Append(MakeU(OP_PUSHI, 0))
	cmds.Append(MakeU(OP_PUSHI, 1))
	cmds.Append(MakeU(OP_PUSHINFO, 0))
	cmds.Append(MakeLR(OP_ADD, 0, 1))
	cmds.Append(MakeLR(OP_POPN, 1, 0))
	consts := Consts{
		Ints:   []int64{1, -2},
		Floats: []float64{3.25, -0.5},
		Strs:   []string{"hello", "", "with spaces"},
	}
	return Wrap(cmds, consts, Info{ObjMax: 4, TmpMax: 2, RegMax: 3})
}

func TestArtifactSaveLoadRoundTrip(t *testing.T) {
	a := sampleArtifact()
	file := filepath.Join(t.TempDir(), "sample"+Suffix)
	if err := a.Save(file); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	loaded, err := Load(file)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !reflect.DeepEqual(a.Instrs, loaded.Instrs) {
		t.Errorf("instructions differ: %v vs %v", a.Instrs, loaded.Instrs)
	}
	if !reflect.DeepEqual(a.Consts, loaded.Consts) {
		t.Errorf("literal pools differ: %v vs %v", a.Consts, loaded.Consts)
	}
	if a.Info != loaded.Info {
		t.Errorf("header differs: %v vs %v", a.Info, loaded.Info)
	}
}

func TestArtifactLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nothing"+Suffix))
	if err == nil {
		t.Fatal("Load() on a missing file did not fail")
	}
	if !errors.Is(err, &terror.Error{Family: terror.FamilySession, Kind: terror.SessionIO}) {
		t.Errorf("error = %v, want session io", err)
	}
}

func TestArtifactLoadShortRead(t *testing.T) {
	a := sampleArtifact()
	file := filepath.Join(t.TempDir(), "short"+Suffix)
	if err := a.Save(file); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, data[:len(data)-5], 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = Load(file)
	if !errors.Is(err, &terror.Error{Family: terror.FamilySession, Kind: terror.SessionIO}) {
		t.Errorf("error = %v, want session io", err)
	}
}

func TestWrapCopiesInstructions(t *testing.T) {
	var cmds Instrs
	cmds.Append(Make(OP_PASS))
	a := Wrap(cmds, Consts{}, Info{})
	cmds[0] = Make(OP_RET)
	if a.Instrs[0].Op() != OP_PASS {
		t.Error("Wrap shares the growable vector with the caller")
	}
}

func TestDisassembleMentionsEverySection(t *testing.T) {
	text := sampleArtifact().Disassemble()
	for _, want := range []string{"OP_PUSHI", "OP_ADD", "Max Obj. Number: 4", "Max Reg. Number: 3", "hello"} {
		if !contains(text, want) {
			t.Errorf("disassembly is missing %q:\n%s", want, text)
		}
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
