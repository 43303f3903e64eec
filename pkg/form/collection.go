package form

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-formgen-orm/pkg/orm"
)

// Slot key prefixes of collection children.
const (
	PersistentPrefix = "persistent_"
	TransientPrefix  = "transient_"
)

const (
	defaultMinMessage = "At least %min% values are required."
	defaultMaxMessage = "At most %max% values are allowed."
)

// PersistentLookup finds the related entity whose identifier renders as id.
type PersistentLookup func(relation orm.Relation, id string) (orm.Entity, bool)

// CollectionOption customises a CollectionForm.
type CollectionOption func(*collectionConfig)

type collectionConfig struct {
	min         int
	max         int
	childForm   string
	factory     ChildFormFactory
	registry    *Registry
	minMessage  string
	maxMessage  string
	lookup      PersistentLookup
	formOptions []Option
}

// WithMin requires at least n submitted children. Zero disables the check.
func WithMin(n int) CollectionOption {
	return func(c *collectionConfig) { c.min = n }
}

// WithMax allows at most n submitted children. Zero means unbounded.
func WithMax(n int) CollectionOption {
	return func(c *collectionConfig) { c.max = n }
}

// WithChildForm selects the registry entry used to build child forms.
func WithChildForm(name string) CollectionOption {
	return func(c *collectionConfig) { c.childForm = strings.TrimSpace(name) }
}

// WithChildFactory builds child forms with factory, bypassing the registry.
func WithChildFactory(factory ChildFormFactory) CollectionOption {
	return func(c *collectionConfig) { c.factory = factory }
}

// WithRegistry sets the registry child form names resolve against.
func WithRegistry(registry *Registry) CollectionOption {
	return func(c *collectionConfig) { c.registry = registry }
}

// WithMessages overrides the cardinality message templates. They may use
// %min% and %max%. Empty strings keep the defaults.
func WithMessages(minMessage, maxMessage string) CollectionOption {
	return func(c *collectionConfig) {
		if minMessage != "" {
			c.minMessage = minMessage
		}
		if maxMessage != "" {
			c.maxMessage = maxMessage
		}
	}
}

// WithPersistentLookup replaces the linear identifier scan, e.g. with an
// indexed query.
func WithPersistentLookup(lookup PersistentLookup) CollectionOption {
	return func(c *collectionConfig) { c.lookup = lookup }
}

// WithFormOptions forwards options to the underlying form.
func WithFormOptions(options ...Option) CollectionOption {
	return func(c *collectionConfig) { c.formOptions = append(c.formOptions, options...) }
}

// CollectionForm embeds one child form per row of a parent's one-to-many
// relation. Rows that exist in storage live under persistent_<id>, new rows
// under transient_<n>. Binding rebuilds the child set from the submitted
// keys; UpdateObject schedules rows missing from the values for deletion and
// SaveEmbeddedForms deletes them before saving the remaining children.
type CollectionForm struct {
	*NoObjectForm

	parent   orm.Entity
	alias    string
	relation orm.Relation
	factory  ChildFormFactory
	config   collectionConfig

	scheduledDeletes []orm.Entity
	deleted          []orm.Entity
	allocated        []orm.Entity
}

var _ ObjectCarrier = (*CollectionForm)(nil)

// NewCollectionForm builds the collection for parent's relation alias and
// populates it with the persisted rows plus enough new rows to satisfy the
// minimum.
func NewCollectionForm(parent orm.Entity, alias string, options ...CollectionOption) (*CollectionForm, error) {
	if parent == nil || orm.IsNull(parent) {
		return nil, configurationError("collection form requires a parent object")
	}
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return nil, configurationError("collection form requires a relation alias")
	}

	cfg := collectionConfig{
		minMessage: defaultMinMessage,
		maxMessage: defaultMaxMessage,
		lookup:     scanPersistent,
	}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	c := &CollectionForm{
		NoObjectForm: newNoObjectForm(cfg.formOptions),
		parent:       parent,
		alias:        alias,
		config:       cfg,
	}
	c.Form.self = c
	c.NoObjectForm.carrier = c

	if err := c.setup(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *CollectionForm) setup() error {
	if c.config.min < 0 || c.config.max < 0 {
		return configurationError("collection %q: bounds must not be negative", c.alias)
	}
	if c.config.max > 0 && c.config.min > c.config.max {
		return configurationError("collection %q: min (%d) is greater than max (%d)", c.alias, c.config.min, c.config.max)
	}

	relation, err := c.parent.Related(c.alias)
	if err != nil {
		return configurationError("collection %q: %v", c.alias, err)
	}
	c.relation = relation

	factory, err := c.resolveFactory()
	if err != nil {
		return err
	}
	c.factory = factory

	for _, entity := range relation.All() {
		if entity.IsNew() {
			return configurationError("collection %q: related objects must be persisted", c.alias)
		}
		id, err := orm.IdentifierString(entity)
		if err != nil {
			return configurationError("collection %q: %v", c.alias, err)
		}
		if err := c.embedChild(PersistentPrefix+id, entity); err != nil {
			return err
		}
	}

	for n := 0; len(c.embeddedOrder) < c.config.min; n++ {
		if err := c.embedTransient(TransientPrefix + strconv.Itoa(n)); err != nil {
			return err
		}
	}

	c.validators.SetPostValidator(SchemaValidatorFunc(c.validateCardinality))
	return nil
}

// ChildFormName returns the configured child form name, or the relation's
// target type with a "Form" suffix.
func (c *CollectionForm) ChildFormName() string {
	if c.config.childForm != "" {
		return c.config.childForm
	}
	return c.relation.Target() + "Form"
}

func (c *CollectionForm) resolveFactory() (ChildFormFactory, error) {
	if c.config.factory != nil {
		return c.config.factory, nil
	}
	name := c.ChildFormName()
	factory, ok := c.config.registry.Resolve(name)
	if !ok {
		return nil, configurationError("collection %q: child form %q is not registered", c.alias, name)
	}
	return factory, nil
}

func (c *CollectionForm) embedChild(key string, entity orm.Entity) error {
	child, err := c.factory(entity)
	if err != nil {
		return fmt.Errorf("form: collection %q: build %q: %w", c.alias, key, err)
	}
	return c.Embed(key, child)
}

func (c *CollectionForm) embedTransient(key string) error {
	entity, err := c.relation.New()
	if err != nil {
		return fmt.Errorf("form: collection %q: allocate %q: %w", c.alias, key, err)
	}
	c.allocated = append(c.allocated, entity)
	return c.embedChild(key, entity)
}

// Parent returns the entity owning the relation.
func (c *CollectionForm) Parent() orm.Entity { return c.parent }

// Alias returns the relation alias.
func (c *CollectionForm) Alias() string { return c.alias }

// Min and Max return the configured cardinality bounds.
func (c *CollectionForm) Min() int { return c.config.min }
func (c *CollectionForm) Max() int { return c.config.max }

// ScheduledDeletes returns the rows UpdateObject marked for deletion.
func (c *CollectionForm) ScheduledDeletes() []orm.Entity {
	return slices.Clone(c.scheduledDeletes)
}

// Deleted returns the rows the last SaveEmbeddedForms removed from storage.
func (c *CollectionForm) Deleted() []orm.Entity {
	return slices.Clone(c.deleted)
}

// PersistentChildByPK returns the related, persisted entity whose identifier
// matches id. Numeric identifiers compare by value, so "05" finds 5.
func (c *CollectionForm) PersistentChildByPK(id string) (orm.Entity, bool) {
	return c.config.lookup(c.relation, id)
}

func scanPersistent(relation orm.Relation, id string) (orm.Entity, bool) {
	for _, entity := range relation.All() {
		if entity.IsNew() {
			continue
		}
		candidate, err := orm.IdentifierString(entity)
		if err != nil {
			continue
		}
		if canonicalID(candidate) == canonicalID(id) {
			return entity, true
		}
	}
	return nil, false
}

// canonicalID renders integer identifiers in base 10 without padding and
// leaves every other identifier untouched.
func canonicalID(id string) string {
	if n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return id
}

// slotOf returns the slot whose child carries entity.
func (c *CollectionForm) slotOf(entity orm.Entity) (string, bool) {
	for _, name := range c.embeddedOrder {
		carrier, ok := c.embedded[name].(ObjectCarrier)
		if ok && carrier.Object() == entity {
			return name, true
		}
	}
	return "", false
}

// ConfigureWithValues discards every child and recreates one per submitted
// key: persistent_<id> keys bind the related row with that identifier, any
// other key binds a newly allocated row. The rebuilt children are then
// configured with their own values. It always reports a change.
func (c *CollectionForm) ConfigureWithValues(values Values, files Files) (bool, error) {
	if err := c.RemoveEmbeddedForms(nil); err != nil {
		return false, err
	}
	c.defaults = Values{}
	c.detachAllocated()

	for _, key := range c.orderSlotKeys(values) {
		if id, ok := strings.CutPrefix(key, PersistentPrefix); ok {
			entity, found := c.PersistentChildByPK(id)
			if !found {
				return false, fmt.Errorf("%w: collection %q has no related object with id %q", ErrReconciliation, c.alias, id)
			}
			if err := c.embedChild(key, entity); err != nil {
				return false, err
			}
			continue
		}
		if err := c.embedTransient(key); err != nil {
			return false, err
		}
	}

	if _, err := c.Form.ConfigureWithValues(values, files); err != nil {
		return false, err
	}
	c.logger.Debug("collection rebuilt from submitted values",
		"relation", c.alias, "slots", c.EmbeddedNames())
	return true, nil
}

// orderSlotKeys puts persistent keys in relation order, followed by the
// remaining keys ordered by numeric suffix and then by name.
func (c *CollectionForm) orderSlotKeys(values Values) []string {
	rank := make(map[string]int)
	for idx, entity := range c.relation.All() {
		if id, err := orm.IdentifierString(entity); err == nil {
			rank[canonicalID(id)] = idx
		}
	}
	persistentRank := func(key string) (int, bool) {
		id, ok := strings.CutPrefix(key, PersistentPrefix)
		if !ok {
			return 0, false
		}
		r, ok := rank[canonicalID(id)]
		return r, ok
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		ri, iPersistent := persistentRank(keys[i])
		rj, jPersistent := persistentRank(keys[j])
		switch {
		case iPersistent && jPersistent:
			return ri < rj
		case iPersistent != jPersistent:
			return iPersistent
		}
		ni, iNumeric := ordinal(keys[i])
		nj, jNumeric := ordinal(keys[j])
		if iNumeric && jNumeric && ni != nj {
			return ni < nj
		}
		if iNumeric != jNumeric {
			return iNumeric
		}
		return keys[i] < keys[j]
	})
	return keys
}

func ordinal(key string) (int, bool) {
	idx := strings.LastIndexByte(key, '_')
	n, err := strconv.Atoi(key[idx+1:])
	return n, err == nil
}

// detachAllocated forgets rows allocated by earlier passes that were never
// saved.
func (c *CollectionForm) detachAllocated() {
	detacher, ok := c.relation.(orm.Detacher)
	for _, entity := range c.allocated {
		if ok && entity.IsNew() {
			detacher.Detach(entity)
		}
	}
	c.allocated = nil
}

func (c *CollectionForm) validateCardinality(values Values) (Values, error) {
	count := 0
	for _, value := range values {
		if nested, ok := asValues(value); ok && nested != nil {
			count++
		}
	}
	if count < c.config.min {
		return nil, NewValidationError("min", c.config.minMessage, map[string]any{"min": c.config.min})
	}
	if c.config.max > 0 && count > c.config.max {
		return nil, NewValidationError("max", c.config.maxMessage, map[string]any{"max": c.config.max})
	}
	return values, nil
}

// UpdateObject schedules every persisted row whose persistent_<id> key is
// missing from values for deletion, then updates the remaining children.
// The schedule is only kept when every child update succeeds. The form must
// be valid.
func (c *CollectionForm) UpdateObject(values Values) error {
	c.scheduledDeletes = nil
	if !c.IsValid() {
		return usageError("cannot update invalid collection %q", c.alias)
	}
	if values == nil {
		values = c.Values()
	}

	kept := make(map[string]bool)
	for key := range values {
		if id, ok := strings.CutPrefix(key, PersistentPrefix); ok {
			kept[canonicalID(id)] = true
		}
	}

	var (
		deletes []orm.Entity
		skip    []string
	)
	for _, entity := range c.relation.All() {
		if entity.IsNew() {
			continue
		}
		id, err := orm.IdentifierString(entity)
		if err != nil {
			return configurationError("collection %q: %v", c.alias, err)
		}
		if kept[canonicalID(id)] {
			continue
		}
		deletes = append(deletes, entity)
		if slot, ok := c.slotOf(entity); ok {
			skip = append(skip, slot)
		}
	}

	if err := updateEmbeddedObjects(c.Form, values, skip...); err != nil {
		return err
	}
	c.scheduledDeletes = deletes
	if len(deletes) > 0 {
		c.logger.Debug("collection rows scheduled for deletion", "relation", c.alias, "count", len(deletes))
	}
	return nil
}

// SaveEmbeddedForms deletes the scheduled rows, drops their slots, then
// saves the remaining children in embedding order. The schedule is cleared
// whether or not a delete fails.
func (c *CollectionForm) SaveEmbeddedForms(ctx context.Context, conn orm.Conn) error {
	conn, err := orm.Resolve(ctx, conn, c.resolver)
	if err != nil {
		return err
	}

	deletes := c.scheduledDeletes
	c.scheduledDeletes = nil
	c.deleted = nil
	detacher, canDetach := c.relation.(orm.Detacher)
	for _, entity := range deletes {
		if err := entity.Delete(ctx, conn); err != nil {
			return fmt.Errorf("form: collection %q: delete: %w", c.alias, err)
		}
		c.deleted = append(c.deleted, entity)
		if slot, ok := c.slotOf(entity); ok {
			if err := c.RemoveEmbeddedForms([]string{slot}); err != nil {
				return err
			}
		}
		if canDetach {
			detacher.Detach(entity)
		}
		c.logger.Debug("collection row deleted", "relation", c.alias)
	}

	if err := saveEmbeddedForms(ctx, c.Form, conn); err != nil {
		return err
	}
	c.allocated = nil
	return nil
}
