package image

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/xxh3"
)

// FileExtension is the conventional extension for program image files.
const FileExtension = ".wvi"

// magic identifies a weavergo image file, versioned in the last byte.
var magic = [4]byte{'W', 'V', 'I', 1}

// The wire form is a flat, acyclic mirror of the in-memory model:
// parent pointers are dropped, and instruction-identity operands
// (branch targets, region boundaries) become stream indices, while
// reference operands become import-table indices. -1 marks an absent
// index.

type wireMarker struct {
	Name string            `msgpack:"n"`
	Args map[string]string `msgpack:"a,omitempty"`
}

type wireTypeRef struct {
	Assembly  string `msgpack:"asm"`
	Name      string `msgpack:"name"`
	ValueType bool   `msgpack:"val,omitempty"`
}

type wireMethodRef struct {
	Assembly     string `msgpack:"asm"`
	Type         string `msgpack:"type"`
	Name         string `msgpack:"name"`
	ParamCount   int    `msgpack:"argc"`
	ReturnsValue bool   `msgpack:"ret,omitempty"`
	Static       bool   `msgpack:"static,omitempty"`
}

type wireInstr struct {
	Op     uint8  `msgpack:"op"`
	A      int    `msgpack:"a,omitempty"`
	I64    int64  `msgpack:"i,omitempty"`
	Str    string `msgpack:"s,omitempty"`
	Method int32  `msgpack:"m"`
	Type   int32  `msgpack:"t"`
	Target int32  `msgpack:"b"`
}

type wireRegion struct {
	Kind    string `msgpack:"kind"`
	Start   int32  `msgpack:"start"`
	End     int32  `msgpack:"end"`
	Handler int32  `msgpack:"handler"`
}

type wireLocal struct {
	Name     string `msgpack:"name"`
	TypeName string `msgpack:"type"`
}

type wireParam struct {
	Name      string       `msgpack:"name"`
	TypeName  string       `msgpack:"type"`
	ValueType bool         `msgpack:"val,omitempty"`
	Markers   []wireMarker `msgpack:"markers,omitempty"`
}

type wireMethod struct {
	Name         string       `msgpack:"name"`
	Static       bool         `msgpack:"static,omitempty"`
	ReturnsValue bool         `msgpack:"ret,omitempty"`
	Markers      []wireMarker `msgpack:"markers,omitempty"`
	Params       []wireParam  `msgpack:"params,omitempty"`
	Locals       []wireLocal  `msgpack:"locals,omitempty"`
	HasBody      bool         `msgpack:"hasbody"`
	Instrs       []wireInstr  `msgpack:"instrs,omitempty"`
	Regions      []wireRegion `msgpack:"regions,omitempty"`
}

type wireType struct {
	Name      string       `msgpack:"name"`
	Base      string       `msgpack:"base,omitempty"`
	ValueType bool         `msgpack:"val,omitempty"`
	Markers   []wireMarker `msgpack:"markers,omitempty"`
	Methods   []wireMethod `msgpack:"methods,omitempty"`
}

type wireModule struct {
	Name    string       `msgpack:"name"`
	Markers []wireMarker `msgpack:"markers,omitempty"`
	Types   []wireType   `msgpack:"types,omitempty"`
}

type wireAssembly struct {
	Name       string          `msgpack:"name"`
	Version    string          `msgpack:"version,omitempty"`
	Markers    []wireMarker    `msgpack:"markers,omitempty"`
	TypeRefs   []wireTypeRef   `msgpack:"typerefs,omitempty"`
	MethodRefs []wireMethodRef `msgpack:"methodrefs,omitempty"`
	Modules    []wireModule    `msgpack:"modules,omitempty"`
}

func markersToWire(ms []Marker) []wireMarker {
	out := make([]wireMarker, 0, len(ms))
	for _, m := range ms {
		out = append(out, wireMarker{Name: m.Name, Args: m.Args})
	}
	return out
}

func markersFromWire(ms []wireMarker) []Marker {
	out := make([]Marker, 0, len(ms))
	for _, m := range ms {
		out = append(out, Marker{Name: m.Name, Args: m.Args})
	}
	return out
}

// Encode serializes an assembly into the image file format: magic,
// xxh3 checksum of the compressed payload, then the gzip-compressed
// msgpack payload.
func Encode(a *Assembly) ([]byte, error) {
	wa, err := toWire(a)
	if err != nil {
		return nil, err
	}
	payload, err := msgpack.Marshal(wa)
	if err != nil {
		return nil, fmt.Errorf("encoding image %q: %w", a.Name, err)
	}

	var compressed bytes.Buffer
	zw := gzip.NewWriter(&compressed)
	if _, err := zw.Write(payload); err != nil {
		return nil, fmt.Errorf("compressing image %q: %w", a.Name, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compressing image %q: %w", a.Name, err)
	}

	out := make([]byte, 0, len(magic)+8+compressed.Len())
	out = append(out, magic[:]...)
	var sum [8]byte
	binary.BigEndian.PutUint64(sum[:], xxh3.Hash(compressed.Bytes()))
	out = append(out, sum[:]...)
	out = append(out, compressed.Bytes()...)
	return out, nil
}

// Checksum returns the xxh3 content checksum stored in an encoded image.
func Checksum(data []byte) (uint64, error) {
	if len(data) < len(magic)+8 || !bytes.Equal(data[:len(magic)], magic[:]) {
		return 0, fmt.Errorf("not a weavergo image file")
	}
	return binary.BigEndian.Uint64(data[len(magic) : len(magic)+8]), nil
}

// Decode parses an encoded image, verifying its content checksum.
func Decode(data []byte) (*Assembly, error) {
	sum, err := Checksum(data)
	if err != nil {
		return nil, err
	}
	compressed := data[len(magic)+8:]
	if got := xxh3.Hash(compressed); got != sum {
		return nil, fmt.Errorf("image checksum mismatch: header %016x, content %016x", sum, got)
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("decompressing image: %w", err)
	}
	payload, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompressing image: %w", err)
	}
	if err := zr.Close(); err != nil {
		return nil, fmt.Errorf("decompressing image: %w", err)
	}

	var wa wireAssembly
	if err := msgpack.Unmarshal(payload, &wa); err != nil {
		return nil, fmt.Errorf("decoding image payload: %w", err)
	}
	return fromWire(&wa)
}

// ReadFile loads and decodes an image file.
func ReadFile(path string) (*Assembly, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("reading image %s: %w", path, err)
	}
	return a, nil
}

// WriteFile encodes an assembly and writes it atomically: the encoded
// bytes land in a temporary file in the target directory which is then
// renamed into place, so a failed run never leaves a half-written
// output behind.
func WriteFile(path string, a *Assembly) (checksum uint64, err error) {
	data, err := Encode(a)
	if err != nil {
		return 0, err
	}
	sum, _ := Checksum(data)

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return 0, err
	}
	if err = tmp.Close(); err != nil {
		return 0, err
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return 0, err
	}
	return sum, nil
}

func toWire(a *Assembly) (*wireAssembly, error) {
	typeRefIndex := make(map[*TypeRef]int32, len(a.TypeRefs))
	methodRefIndex := make(map[*MethodRef]int32, len(a.MethodRefs))

	wa := &wireAssembly{
		Name:    a.Name,
		Version: a.Version,
		Markers: markersToWire(a.Markers),
	}
	for i, tr := range a.TypeRefs {
		typeRefIndex[tr] = int32(i)
		wa.TypeRefs = append(wa.TypeRefs, wireTypeRef{Assembly: tr.Assembly, Name: tr.Name, ValueType: tr.ValueType})
	}
	for i, mr := range a.MethodRefs {
		methodRefIndex[mr] = int32(i)
		wa.MethodRefs = append(wa.MethodRefs, wireMethodRef{
			Assembly: mr.Assembly, Type: mr.Type, Name: mr.Name,
			ParamCount: mr.ParamCount, ReturnsValue: mr.ReturnsValue, Static: mr.Static,
		})
	}

	for _, mod := range a.Modules {
		wm := wireModule{Name: mod.Name, Markers: markersToWire(mod.Markers)}
		for _, t := range mod.Types {
			wt := wireType{Name: t.Name, Base: t.Base, ValueType: t.ValueType, Markers: markersToWire(t.Markers)}
			for _, method := range t.Methods {
				w, err := methodToWire(method, typeRefIndex, methodRefIndex)
				if err != nil {
					return nil, err
				}
				wt.Methods = append(wt.Methods, w)
			}
			wm.Types = append(wm.Types, wt)
		}
		wa.Modules = append(wa.Modules, wm)
	}
	return wa, nil
}

func methodToWire(m *Method, typeRefs map[*TypeRef]int32, methodRefs map[*MethodRef]int32) (wireMethod, error) {
	w := wireMethod{
		Name:         m.Name,
		Static:       m.Static,
		ReturnsValue: m.ReturnsValue,
		Markers:      markersToWire(m.Markers),
	}
	for _, p := range m.Params {
		w.Params = append(w.Params, wireParam{
			Name: p.Name, TypeName: p.TypeName, ValueType: p.ValueType,
			Markers: markersToWire(p.Markers),
		})
	}
	for _, l := range m.Locals {
		w.Locals = append(w.Locals, wireLocal{Name: l.Name, TypeName: l.TypeName})
	}
	if m.Body == nil {
		return w, nil
	}
	w.HasBody = true

	index := make(map[*Instruction]int32, len(m.Body.Instrs))
	for i, in := range m.Body.Instrs {
		index[in] = int32(i)
	}
	instrIndex := func(in *Instruction) (int32, error) {
		if in == nil {
			return -1, nil
		}
		i, ok := index[in]
		if !ok {
			return 0, fmt.Errorf("encoding %s: operand instruction not in stream", m.QualifiedName())
		}
		return i, nil
	}

	for _, in := range m.Body.Instrs {
		wi := wireInstr{Op: uint8(in.Op), A: in.A, I64: in.I64, Str: in.Str, Method: -1, Type: -1, Target: -1}
		if in.Method != nil {
			i, ok := methodRefs[in.Method]
			if !ok {
				return w, fmt.Errorf("encoding %s: call operand not in method-reference table", m.QualifiedName())
			}
			wi.Method = i
		}
		if in.Type != nil {
			i, ok := typeRefs[in.Type]
			if !ok {
				return w, fmt.Errorf("encoding %s: ldsvc operand not in type-reference table", m.QualifiedName())
			}
			wi.Type = i
		}
		var err error
		if wi.Target, err = instrIndex(in.Target); err != nil {
			return w, err
		}
		w.Instrs = append(w.Instrs, wi)
	}
	for _, r := range m.Body.Regions {
		wr := wireRegion{Kind: r.Kind}
		var err error
		if wr.Start, err = instrIndex(r.Start); err != nil {
			return w, err
		}
		if wr.End, err = instrIndex(r.End); err != nil {
			return w, err
		}
		if wr.Handler, err = instrIndex(r.Handler); err != nil {
			return w, err
		}
		w.Regions = append(w.Regions, wr)
	}
	return w, nil
}

func fromWire(wa *wireAssembly) (*Assembly, error) {
	a := &Assembly{Name: wa.Name, Version: wa.Version}
	a.Markers = markersFromWire(wa.Markers)
	for _, tr := range wa.TypeRefs {
		a.TypeRefs = append(a.TypeRefs, &TypeRef{Assembly: tr.Assembly, Name: tr.Name, ValueType: tr.ValueType})
	}
	for _, mr := range wa.MethodRefs {
		a.MethodRefs = append(a.MethodRefs, &MethodRef{
			Assembly: mr.Assembly, Type: mr.Type, Name: mr.Name,
			ParamCount: mr.ParamCount, ReturnsValue: mr.ReturnsValue, Static: mr.Static,
		})
	}

	for _, wm := range wa.Modules {
		mod := a.AddModule(&Module{Name: wm.Name})
		mod.Markers = markersFromWire(wm.Markers)
		for _, wt := range wm.Types {
			t := mod.AddType(&TypeDef{Name: wt.Name, Base: wt.Base, ValueType: wt.ValueType})
			t.Markers = markersFromWire(wt.Markers)
			for _, w := range wt.Methods {
				m, err := methodFromWire(a, w)
				if err != nil {
					return nil, err
				}
				t.AddMethod(m)
			}
		}
	}
	return a, nil
}

func methodFromWire(a *Assembly, w wireMethod) (*Method, error) {
	m := &Method{Name: w.Name, Static: w.Static, ReturnsValue: w.ReturnsValue}
	m.Markers = markersFromWire(w.Markers)
	for _, wp := range w.Params {
		p := &Parameter{Name: wp.Name, TypeName: wp.TypeName, ValueType: wp.ValueType}
		p.Markers = markersFromWire(wp.Markers)
		m.AddParam(p)
	}
	for _, wl := range w.Locals {
		m.Locals = append(m.Locals, Local{Name: wl.Name, TypeName: wl.TypeName})
	}
	if !w.HasBody {
		return m, nil
	}

	body := &Body{Instrs: make([]*Instruction, len(w.Instrs))}
	for i := range w.Instrs {
		body.Instrs[i] = &Instruction{}
	}
	at := func(i int32, what string) (*Instruction, error) {
		if i < 0 {
			return nil, nil
		}
		if int(i) >= len(body.Instrs) {
			return nil, fmt.Errorf("decoding %s.%s: %s index %d out of range", a.Name, w.Name, what, i)
		}
		return body.Instrs[i], nil
	}
	for i, wi := range w.Instrs {
		in := body.Instrs[i]
		in.Op = Opcode(wi.Op)
		in.A = wi.A
		in.I64 = wi.I64
		in.Str = wi.Str
		if wi.Method >= 0 {
			if int(wi.Method) >= len(a.MethodRefs) {
				return nil, fmt.Errorf("decoding %s.%s: method-reference index %d out of range", a.Name, w.Name, wi.Method)
			}
			in.Method = a.MethodRefs[wi.Method]
		}
		if wi.Type >= 0 {
			if int(wi.Type) >= len(a.TypeRefs) {
				return nil, fmt.Errorf("decoding %s.%s: type-reference index %d out of range", a.Name, w.Name, wi.Type)
			}
			in.Type = a.TypeRefs[wi.Type]
		}
		var err error
		if in.Target, err = at(wi.Target, "branch target"); err != nil {
			return nil, err
		}
	}
	for _, wr := range w.Regions {
		r := &Region{Kind: wr.Kind}
		var err error
		if r.Start, err = at(wr.Start, "region start"); err != nil {
			return nil, err
		}
		if r.End, err = at(wr.End, "region end"); err != nil {
			return nil, err
		}
		if r.Handler, err = at(wr.Handler, "region handler"); err != nil {
			return nil, err
		}
		body.Regions = append(body.Regions, r)
	}
	m.Body = body
	return m, nil
}
