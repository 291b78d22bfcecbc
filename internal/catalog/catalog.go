package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Common errors.
var (
	ErrTypeNotFound      = errors.New("document type not found")
	ErrFieldNotFound     = errors.New("catalog field not found")
	ErrValidatorNotFound = errors.New("validator not found")
)

// UnresolvedFieldsError reports target-schema field codes that do not
// exist in the catalog. Unresolvable codes are fatal for the document
// being processed; they are never silently dropped.
type UnresolvedFieldsError struct {
	Codes []string
}

func (e *UnresolvedFieldsError) Error() string {
	return fmt.Sprintf("could not resolve field codes: %s", strings.Join(e.Codes, ", "))
}

// Catalog is the read-only lookup surface the pipeline consumes.
type Catalog interface {
	// ActiveDocumentTypes returns all active document types, optionally
	// filtered by nature.
	ActiveDocumentTypes(ctx context.Context, nature DocumentNature) ([]DocumentType, error)

	// DocumentTypeByID returns an active document type by ID.
	DocumentTypeByID(ctx context.Context, id uuid.UUID) (*DocumentType, error)

	// DocumentTypeByCode returns an active document type by code.
	DocumentTypeByCode(ctx context.Context, code string) (*DocumentType, error)

	// ResolveFields resolves catalog field codes to their definitions.
	// A single unresolvable code fails the whole call with
	// *UnresolvedFieldsError.
	ResolveFields(ctx context.Context, codes []string) ([]CatalogField, error)

	// ValidatorsByIDs returns the active validator definitions for the
	// given IDs; unknown IDs are skipped.
	ValidatorsByIDs(ctx context.Context, ids []uuid.UUID) ([]ValidatorDefinition, error)
}

// MemoryCatalog is an in-memory Catalog, used for development and tests.
// It is safe for concurrent use.
type MemoryCatalog struct {
	mu         sync.RWMutex
	types      map[uuid.UUID]DocumentType
	fields     map[string]CatalogField
	validators map[uuid.UUID]ValidatorDefinition
}

// NewMemoryCatalog creates an empty in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		types:      make(map[uuid.UUID]DocumentType),
		fields:     make(map[string]CatalogField),
		validators: make(map[uuid.UUID]ValidatorDefinition),
	}
}

// PutDocumentType registers or replaces a document type.
func (c *MemoryCatalog) PutDocumentType(dt DocumentType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if dt.ID == uuid.Nil {
		dt.ID = uuid.New()
	}
	c.types[dt.ID] = dt
}

// PutField registers or replaces a catalog field.
func (c *MemoryCatalog) PutField(f CatalogField) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	c.fields[f.Code] = f
}

// PutValidator registers or replaces a validator definition.
func (c *MemoryCatalog) PutValidator(v ValidatorDefinition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	c.validators[v.ID] = v
}

// ActiveDocumentTypes returns active document types sorted by code.
func (c *MemoryCatalog) ActiveDocumentTypes(ctx context.Context, nature DocumentNature) ([]DocumentType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []DocumentType
	for _, dt := range c.types {
		if !dt.IsActive {
			continue
		}
		if nature != "" && dt.Nature != nature {
			continue
		}
		out = append(out, dt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// DocumentTypeByID returns an active document type by ID.
func (c *MemoryCatalog) DocumentTypeByID(ctx context.Context, id uuid.UUID) (*DocumentType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dt, ok := c.types[id]
	if !ok || !dt.IsActive {
		return nil, ErrTypeNotFound
	}
	return &dt, nil
}

// DocumentTypeByCode returns an active document type by code.
func (c *MemoryCatalog) DocumentTypeByCode(ctx context.Context, code string) (*DocumentType, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, dt := range c.types {
		if dt.Code == code && dt.IsActive {
			t := dt
			return &t, nil
		}
	}
	return nil, ErrTypeNotFound
}

// ResolveFields resolves field codes to active definitions. Any missing
// code fails the call.
func (c *MemoryCatalog) ResolveFields(ctx context.Context, codes []string) ([]CatalogField, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	resolved := make([]CatalogField, 0, len(codes))
	var missing []string
	for _, code := range codes {
		f, ok := c.fields[code]
		if !ok || !f.IsActive {
			missing = append(missing, code)
			continue
		}
		resolved = append(resolved, f)
	}
	if len(missing) > 0 {
		return nil, &UnresolvedFieldsError{Codes: missing}
	}
	return resolved, nil
}

// ValidatorsByIDs returns active validator definitions for the given IDs.
func (c *MemoryCatalog) ValidatorsByIDs(ctx context.Context, ids []uuid.UUID) ([]ValidatorDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]ValidatorDefinition, 0, len(ids))
	for _, id := range ids {
		if v, ok := c.validators[id]; ok && v.IsActive {
			out = append(out, v)
		}
	}
	return out, nil
}
