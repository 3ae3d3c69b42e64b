package engine

import (
	"sort"

	"github.com/go-playground/validator/v10"
)

// Record is one stored document.
type Record = map[string]any

// IndexSchema describes a secondary index over a collection.
type IndexSchema struct {
	Name       string  `json:"name" yaml:"name" validate:"required,max=255"`
	KeyPath    KeyPath `json:"key_path" yaml:"key_path"`
	Unique     bool    `json:"unique,omitempty" yaml:"unique"`
	MultiEntry bool    `json:"multi_entry,omitempty" yaml:"multi_entry"`
}

// CollectionSchema describes a collection and its indexes.
type CollectionSchema struct {
	Name          string        `json:"name" yaml:"name" validate:"required,max=255"`
	KeyPath       KeyPath       `json:"key_path" yaml:"key_path"`
	AutoIncrement bool          `json:"auto_increment,omitempty" yaml:"auto_increment"`
	Indexes       []IndexSchema `json:"indexes,omitempty" yaml:"indexes" validate:"dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the schema before it is persisted.
func (s CollectionSchema) Validate() error {
	if err := validate.Struct(s); err != nil {
		return wrapError(NameData, err, "invalid schema for collection %q", s.Name)
	}

	if err := s.KeyPath.Validate(); err != nil {
		return err
	}

	if s.AutoIncrement && s.KeyPath.IsComposite() {
		return newError(NameData, "collection %q: auto increment requires a single-field key path", s.Name)
	}

	seen := make(map[string]struct{}, len(s.Indexes))

	for _, idx := range s.Indexes {
		if _, dup := seen[idx.Name]; dup {
			return newError(NameConstraint, "collection %q: duplicate index %q", s.Name, idx.Name)
		}

		seen[idx.Name] = struct{}{}

		if err := idx.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Validate checks a single index definition.
func (i IndexSchema) Validate() error {
	if err := validate.Struct(i); err != nil {
		return wrapError(NameData, err, "invalid index %q", i.Name)
	}

	if i.KeyPath.IsZero() {
		return newError(NameData, "index %q has no key path", i.Name)
	}

	if i.MultiEntry && i.KeyPath.IsComposite() {
		return newError(NameData, "index %q: multi-entry indexes need a single-field key path", i.Name)
	}

	return i.KeyPath.Validate()
}

// Index returns the named index definition.
func (s CollectionSchema) Index(name string) (IndexSchema, bool) {
	for _, idx := range s.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}

	return IndexSchema{}, false
}

// IndexNames returns the index names in sorted order.
func (s CollectionSchema) IndexNames() []string {
	names := make([]string, 0, len(s.Indexes))
	for _, idx := range s.Indexes {
		names = append(names, idx.Name)
	}

	sort.Strings(names)

	return names
}
