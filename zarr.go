package dggs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	// Version is the zarr storage format written by this library.
	Version = 2
	// ConsolidatedVersion is the consolidated metadata format written by
	// ConsolidateMetadata
	ConsolidatedVersion = 1
)

// OpenVariable reads the one-dimensional cell identifier array stored at path
func OpenVariable(store Store, path string) (Variable, error) {
	p, err := NewPath(path)
	if err != nil {
		return Variable{}, err
	}

	meta := &ArrayMeta{}
	if err := readJSON(store, p.Join(string(MTArray)), meta); err != nil {
		return Variable{}, fmt.Errorf("reading %q array metadata: %w", path, err)
	}
	attrs := Attributes{}
	if err := readJSON(store, p.Join(string(MTAttributes)), &attrs); err != nil && !errors.Is(err, ErrNotfound) {
		return Variable{}, fmt.Errorf("reading %q attributes: %w", path, err)
	}

	return readVariable(store, p, meta, attrs)
}

// OpenVariables reads the consolidated metadata of the group at path and opens
// every array whose attributes name a grid. Variables are keyed by their path
// relative to the group.
func OpenVariables(store Store, group string) (map[string]Variable, error) {
	g, err := NewPath(group)
	if err != nil {
		return nil, err
	}

	cm := &ConsolidatedMetadata{}
	if err := readJSON(store, g.Join(string(MTMetadata)), cm); err != nil {
		return nil, fmt.Errorf("reading %q consolidated metadata: %w", group, err)
	}

	vars := map[string]Variable{}
	for rel, meta := range cm.Arrays() {
		relPath, _ := NewPath(rel)
		attrs := cm.Attributes(relPath)
		if _, ok := attrs.GridName(); !ok {
			continue
		}
		v, err := readVariable(store, g.Join(relPath...), meta, attrs)
		if err != nil {
			return nil, fmt.Errorf("opening %q: %w", rel, err)
		}
		vars[rel] = v
	}
	return vars, nil
}

func readVariable(store Store, p Path, meta *ArrayMeta, attrs Attributes) (Variable, error) {
	if err := meta.oneDimensional(); err != nil {
		return Variable{}, err
	}

	name := p.Name()
	dims := attrs.Dimensions()
	if dims == nil {
		dims = []string{name}
	}
	varAttrs := attrs.Clone()
	delete(varAttrs, AttrArrayDimensions)

	length := meta.Shape[0]
	var (
		zones ZoneIDs
		texts TextIDs
	)
	if meta.Dtype.textual() {
		texts = make(TextIDs, length)
	} else {
		zones = make(ZoneIDs, length)
	}

	for _, proj := range chunkProjections(length, meta.Chunks[0]) {
		data, err := readChunk(store, p.Join(strconv.Itoa(proj.DimChunkIX)), meta.Compressor)
		if err != nil {
			return Variable{}, err
		}
		out := proj.DimOutSel
		if texts != nil {
			err = meta.Dtype.decodeText(data, texts[out:out+proj.DimChunkSel])
		} else {
			err = meta.Dtype.decodeZones(data, zones[out:out+proj.DimChunkSel])
		}
		if err != nil {
			return Variable{}, fmt.Errorf("decoding chunk %d of %q: %w", proj.DimChunkIX, p.String(), err)
		}
	}

	v := Variable{Name: name, Dims: dims, Attrs: varAttrs, Data: zones}
	if texts != nil {
		v.Data = texts
	}
	log.WithFields(logrus.Fields{"path": p.String(), "cells": length, "dtype": meta.Dtype.String()}).Debug("opened cell identifier variable")
	return v, nil
}

func readChunk(store Store, key Path, comp *CompressionMeta) ([]byte, error) {
	f, err := store.Get(key.String())
	if err != nil {
		return nil, err
	}
	var r io.ReadCloser = f
	if comp != nil {
		if r, err = comp.Decompressor(f); err != nil {
			f.Close()
			return nil, err
		}
	}
	defer r.Close()
	return io.ReadAll(r)
}

// WriteVariable stores v as an uncompressed one-dimensional array at path,
// split into chunks of chunkLen items. A chunkLen of zero or less writes a
// single chunk.
func WriteVariable(store Store, path string, v Variable, chunkLen int) error {
	if len(v.Dims) != 1 {
		return fmt.Errorf("%w: %q has dimensions %v", ErrNotOneDimensional, v.Name, v.Dims)
	}
	p, err := NewPath(path)
	if err != nil {
		return err
	}

	cells := v.Data
	if cells == nil {
		cells = ZoneIDs{}
	}
	length := cells.Len()
	if chunkLen <= 0 {
		chunkLen = max(length, 1)
	}

	dt := cellDtype(cells)
	meta := &ArrayMeta{
		ZarrFormat: Version,
		Shape:      []int{length},
		Chunks:     []int{chunkLen},
		Dtype:      dt,
		Order:      "C",
	}
	if err := writeJSON(store, p.Join(string(MTArray)), meta); err != nil {
		return err
	}

	attrs := v.Attrs.Clone()
	attrs[AttrArrayDimensions] = v.Dims
	if err := writeJSON(store, p.Join(string(MTAttributes)), attrs); err != nil {
		return err
	}

	for _, proj := range chunkProjections(length, chunkLen) {
		from := proj.DimOutSel
		buf := dt.encodeCells(cells, from, from+proj.DimChunkSel, chunkLen)
		if err := store.Put(p.Join(strconv.Itoa(proj.DimChunkIX)).String(), bytes.NewReader(buf)); err != nil {
			return err
		}
	}
	return nil
}

// ConsolidateMetadata gathers the group, array and attribute documents of the
// named arrays below group into a single ".zmetadata" document
func ConsolidateMetadata(store Store, group string, arrays ...string) error {
	g, err := NewPath(group)
	if err != nil {
		return err
	}

	cm := &ConsolidatedMetadata{
		ConsolidatedFormat: ConsolidatedVersion,
		Metadata: map[string]MetaTyper{
			string(MTGroup): Group{ZarrFormat: Version},
		},
	}
	for _, a := range arrays {
		rel, err := NewPath(a)
		if err != nil {
			return err
		}
		meta := &ArrayMeta{}
		if err := readJSON(store, g.Join(rel...).Join(string(MTArray)), meta); err != nil {
			return fmt.Errorf("reading %q array metadata: %w", a, err)
		}
		cm.Metadata[rel.Join(string(MTArray)).String()] = meta

		attrs := Attributes{}
		err = readJSON(store, g.Join(rel...).Join(string(MTAttributes)), &attrs)
		switch {
		case err == nil:
			cm.Metadata[rel.Join(string(MTAttributes)).String()] = attrs
		case !errors.Is(err, ErrNotfound):
			return fmt.Errorf("reading %q attributes: %w", a, err)
		}
	}

	if err := writeJSON(store, g.Join(string(MTGroup)), Group{ZarrFormat: Version}); err != nil {
		return err
	}
	return writeJSON(store, g.Join(string(MTMetadata)), cm)
}

func readJSON(store Store, key Path, v interface{}) error {
	f, err := store.Get(key.String())
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(v)
}

func writeJSON(store Store, key Path, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return store.Put(key.String(), bytes.NewReader(data))
}

// Path is a normalized logical path of a node in a store
type Path []string

// NewPath normalizes a logical path: backslashes become forward slashes,
// leading and trailing slashes are stripped and repeated slashes collapse.
// The empty path names the store root.
func NewPath(posix string) (Path, error) {
	posix = strings.ReplaceAll(posix, "\\", "/")
	p := Path{}
	for _, el := range strings.Split(posix, "/") {
		switch el {
		case "":
			continue
		case ".", "..":
			return nil, fmt.Errorf("invalid path %q: relative element %q", posix, el)
		}
		p = append(p, el)
	}
	return p, nil
}

func (p Path) String() string {
	return strings.Join(p, "/")
}

// Name is the last element of the path
func (p Path) Name() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Join returns a new path with elems appended; p is left untouched
func (p Path) Join(elems ...string) Path {
	joined := make(Path, 0, len(p)+len(elems))
	joined = append(joined, p...)
	return append(joined, elems...)
}
