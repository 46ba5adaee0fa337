package catalog

import (
	"fmt"
	"sort"
	"strings"

	"minisearch/internal/model"
)

// Snapshot is the raw load result produced by the store. Catalog construction
// validates it and builds the derived indexes; after New returns, nothing in
// the catalog ever changes.
type Snapshot struct {
	Fields      []model.FieldRecord
	Encodings   map[int][]model.EncodingEntry
	Recommended []int
}

type encodingTable struct {
	order  []string
	labels map[string]string
}

type categoryBucket struct {
	display string
	ids     []int
}

// Catalog is the immutable in-memory field dictionary. It is built once at
// startup and shared by value reference across goroutines without locking;
// all methods are pure reads.
type Catalog struct {
	fields      []model.FieldRecord
	byID        map[int]int
	categories  map[string]*categoryBucket
	encodings   map[int]encodingTable
	recommended []int
	tokens      [][]string
}

func New(snap Snapshot) (*Catalog, error) {
	fields := make([]model.FieldRecord, len(snap.Fields))
	copy(fields, snap.Fields)
	sort.Slice(fields, func(i, j int) bool { return fields[i].ID < fields[j].ID })

	c := &Catalog{
		fields:     fields,
		byID:       make(map[int]int, len(fields)),
		categories: make(map[string]*categoryBucket),
		encodings:  make(map[int]encodingTable, len(snap.Encodings)),
		tokens:     make([][]string, len(fields)),
	}

	for ref, entries := range snap.Encodings {
		table := encodingTable{
			order:  make([]string, 0, len(entries)),
			labels: make(map[string]string, len(entries)),
		}
		for _, e := range entries {
			if _, dup := table.labels[e.Code]; dup {
				continue
			}
			table.order = append(table.order, e.Code)
			table.labels[e.Code] = e.Label
		}
		c.encodings[ref] = table
	}

	for i, f := range fields {
		if _, dup := c.byID[f.ID]; dup {
			return nil, fmt.Errorf("duplicate field id %d", f.ID)
		}
		c.byID[f.ID] = i

		if f.EncodingRef != 0 {
			if _, ok := c.encodings[f.EncodingRef]; !ok {
				return nil, fmt.Errorf("field %d references unknown encoding %d", f.ID, f.EncodingRef)
			}
		}

		if cat := strings.TrimSpace(f.Category); cat != "" {
			key := strings.ToLower(cat)
			bucket, ok := c.categories[key]
			if !ok {
				bucket = &categoryBucket{display: cat}
				c.categories[key] = bucket
			}
			bucket.ids = append(bucket.ids, f.ID)
		}

		c.tokens[i] = tokenize(f.Name + " " + f.Description)
	}

	for _, id := range snap.Recommended {
		if _, ok := c.byID[id]; ok {
			c.recommended = append(c.recommended, id)
		}
	}
	sort.Ints(c.recommended)

	return c, nil
}

// LookupByID returns the field with the given id.
func (c *Catalog) LookupByID(id int) (model.FieldRecord, error) {
	idx, ok := c.byID[id]
	if !ok {
		return model.FieldRecord{}, model.NotFound("field %d not found", id)
	}
	return c.fields[idx], nil
}

// ListCategory returns the fields of a category in ascending id order. The
// category name match is case-insensitive and accepts a partial name when it
// identifies exactly one category.
func (c *Catalog) ListCategory(name string, limit int) ([]model.FieldRecord, string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, "", model.InvalidArgument("category_name must not be empty")
	}

	bucket, ok := c.categories[key]
	if !ok {
		var partial []*categoryBucket
		for k, b := range c.categories {
			if strings.Contains(k, key) {
				partial = append(partial, b)
			}
		}
		switch len(partial) {
		case 1:
			bucket = partial[0]
		case 0:
			return nil, "", model.NotFound("category %q not found", name)
		default:
			return nil, "", model.NotFound("category %q is ambiguous, matches %d categories", name, len(partial))
		}
	}

	ids := bucket.ids
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]model.FieldRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.fields[c.byID[id]])
	}
	return out, bucket.display, nil
}

// ResolveEncoding returns the meaning of one coded value.
func (c *Catalog) ResolveEncoding(ref int, code string) (model.EncodingEntry, error) {
	table, ok := c.encodings[ref]
	if !ok {
		return model.EncodingEntry{}, model.NotFound("encoding %d not found", ref)
	}
	label, ok := table.labels[code]
	if !ok {
		return model.EncodingEntry{}, model.NotFound("code %q not defined in encoding %d", code, ref)
	}
	return model.EncodingEntry{Code: code, Label: label}, nil
}

// ListEncoding returns the entries of an encoding table in load order.
func (c *Catalog) ListEncoding(ref, limit int) ([]model.EncodingEntry, error) {
	table, ok := c.encodings[ref]
	if !ok {
		return nil, model.NotFound("encoding %d not found", ref)
	}
	codes := table.order
	if limit > 0 && len(codes) > limit {
		codes = codes[:limit]
	}
	out := make([]model.EncodingEntry, 0, len(codes))
	for _, code := range codes {
		out = append(out, model.EncodingEntry{Code: code, Label: table.labels[code]})
	}
	return out, nil
}

// Categories lists every category with its field count, sorted by name.
func (c *Catalog) Categories() []model.CategoryInfo {
	out := make([]model.CategoryInfo, 0, len(c.categories))
	for _, b := range c.categories {
		out = append(out, model.CategoryInfo{Name: b.display, FieldCount: len(b.ids)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Recommended returns the curated field list, optionally narrowed to one
// category, in ascending id order.
func (c *Catalog) Recommended(category string, limit int) []model.FieldRecord {
	filter := strings.ToLower(strings.TrimSpace(category))
	out := make([]model.FieldRecord, 0, len(c.recommended))
	for _, id := range c.recommended {
		f := c.fields[c.byID[id]]
		if filter != "" && !strings.Contains(strings.ToLower(f.Category), filter) {
			continue
		}
		out = append(out, f)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// NumFields reports the catalog size.
func (c *Catalog) NumFields() int { return len(c.fields) }

// NumCategories reports the number of distinct categories.
func (c *Catalog) NumCategories() int { return len(c.categories) }

// NumEncodings reports the number of encoding tables.
func (c *Catalog) NumEncodings() int { return len(c.encodings) }
