package catalog

import "fmt"

// EntityType is the dotted model identifier used in fixture files,
// e.g. "sources.soundsource".
type EntityType string

const (
	TypeUser        EntityType = "accounts.user"
	TypeGameTag     EntityType = "games.gametag"
	TypeCompany     EntityType = "sources.company"
	TypeProduct     EntityType = "sources.product"
	TypePerson      EntityType = "songs.person"
	TypeGame        EntityType = "games.game"
	TypeSong        EntityType = "songs.song"
	TypeBank        EntityType = "sources.bank"
	TypeSoundSource EntityType = "sources.soundsource"
)

// FieldKind tags how a schema field is stored and serialized.
type FieldKind int

const (
	// KindText is a free-form string. Unless Nullable is set it is
	// blank-allowed but never null: absence persists as "".
	KindText FieldKind = iota
	// KindInt is an integer scalar, null when Nullable and unset.
	KindInt
	// KindDate is a "YYYY-MM-DD" date string, null when unset.
	KindDate
	// KindForeignKey references another entity's primary key.
	KindForeignKey
	// KindManyToMany is a set of references to another entity type.
	KindManyToMany
	// KindAutoTime is a store-managed timestamp, excluded from fixtures.
	KindAutoTime
)

func (k FieldKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInt:
		return "int"
	case KindDate:
		return "date"
	case KindForeignKey:
		return "foreign_key"
	case KindManyToMany:
		return "many_to_many"
	case KindAutoTime:
		return "auto_timestamp"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Field describes one column or relationship of an entity.
type Field struct {
	Name     string
	Kind     FieldKind
	Nullable bool // scalar kinds: null is a legal stored value
	Required bool // foreign keys: must resolve to a record

	// Foreign key / many-to-many target.
	Target EntityType

	// Storage mapping. Column is the table column for scalar and FK
	// fields; the Join* fields describe the link table for M2M fields.
	Column      string
	JoinTable   string
	OwnerColumn string
	RefColumn   string
}

// EntitySchema is the static description of one entity type.
type EntitySchema struct {
	Type   EntityType
	App    string // logical group, e.g. "sources"
	Plural string // file stem suffix, e.g. "soundsources"
	Table  string

	Fields []Field

	// Unique names the fields forming the natural key, possibly a
	// single field. Empty means no declared uniqueness constraint.
	Unique []string

	// Normalize fills derived fields before validation and persistence.
	// Nil when the entity has none.
	Normalize func(rec *Record)

	// Check runs entity-specific validation after all fields of a
	// record have been resolved. Nil when the entity has none.
	Check func(rec *Record) error
}

// Field returns the schema field with the given fixture name.
func (s *EntitySchema) Field(name string) (*Field, bool) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

// FileStem is the fixture file name without extension, e.g.
// "sources_soundsources".
func (s *EntitySchema) FileStem() string {
	return s.App + "_" + s.Plural
}

// DependsOn lists the entity types this type references through
// foreign-key or many-to-many fields, deduplicated, in field order.
// Self references are excluded.
func (s *EntitySchema) DependsOn() []EntityType {
	var deps []EntityType
	seen := make(map[EntityType]struct{})
	for _, f := range s.Fields {
		if f.Kind != KindForeignKey && f.Kind != KindManyToMany {
			continue
		}
		if f.Target == s.Type {
			continue
		}
		if _, ok := seen[f.Target]; ok {
			continue
		}
		seen[f.Target] = struct{}{}
		deps = append(deps, f.Target)
	}
	return deps
}

// Registry holds every entity schema in declaration order.
type Registry struct {
	schemas []EntitySchema
	byType  map[EntityType]*EntitySchema
}

// NewRegistry builds the registry for the VGM source database. The
// declaration order below is the deterministic tie-break used by Order.
func NewRegistry() *Registry {
	r := &Registry{
		schemas: []EntitySchema{
			userSchema(),
			gameTagSchema(),
			companySchema(),
			productSchema(),
			personSchema(),
			gameSchema(),
			songSchema(),
			bankSchema(),
			soundSourceSchema(),
		},
	}
	r.byType = make(map[EntityType]*EntitySchema, len(r.schemas))
	for i := range r.schemas {
		r.byType[r.schemas[i].Type] = &r.schemas[i]
	}
	return r
}

// Schemas returns all schemas in declaration order.
func (r *Registry) Schemas() []EntitySchema {
	return r.schemas
}

// Lookup resolves a dotted model identifier.
func (r *Registry) Lookup(model string) (*EntitySchema, bool) {
	schema, ok := r.byType[EntityType(model)]
	return schema, ok
}

// Apps returns the distinct logical groups in declaration order.
func (r *Registry) Apps() []string {
	var apps []string
	seen := make(map[string]struct{})
	for i := range r.schemas {
		app := r.schemas[i].App
		if _, ok := seen[app]; ok {
			continue
		}
		seen[app] = struct{}{}
		apps = append(apps, app)
	}
	return apps
}

func timestamps() []Field {
	return []Field{
		{Name: "created_at", Kind: KindAutoTime, Column: "created_at"},
		{Name: "updated_at", Kind: KindAutoTime, Column: "updated_at"},
	}
}

func userSchema() EntitySchema {
	return EntitySchema{
		Type:   TypeUser,
		App:    "accounts",
		Plural: "users",
		Table:  "users",
		Fields: append([]Field{
			{Name: "username", Kind: KindText, Column: "username"},
			{Name: "notes", Kind: KindText, Column: "notes"},
		}, timestamps()...),
		Unique: []string{"username"},
	}
}

func gameTagSchema() EntitySchema {
	return EntitySchema{
		Type:   TypeGameTag,
		App:    "games",
		Plural: "gametags",
		Table:  "game_tags",
		Fields: append([]Field{
			{Name: "name", Kind: KindText, Column: "name"},
			{Name: "slug", Kind: KindText, Column: "slug"},
			{Name: "description", Kind: KindText, Column: "description"},
		}, timestamps()...),
		Unique:    []string{"name"},
		Normalize: normalizeGameTag,
	}
}

// normalizeGameTag derives the slug from the tag name when the fixture
// leaves it blank, matching what the live application does on save.
func normalizeGameTag(rec *Record) {
	slug := rec.Fields["slug"]
	if slug.Kind != ValueString || slug.Str == "" {
		if name := rec.Fields["name"]; name.Kind == ValueString {
			rec.Fields["slug"] = StringValue(Slugify(name.Str))
		}
	}
}

func companySchema() EntitySchema {
	return EntitySchema{
		Type:   TypeCompany,
		App:    "sources",
		Plural: "companies",
		Table:  "companies",
		Fields: append([]Field{
			{Name: "name", Kind: KindText, Column: "name"},
			{Name: "notes", Kind: KindText, Column: "notes"},
		}, timestamps()...),
		Unique: []string{"name"},
	}
}

func productSchema() EntitySchema {
	return EntitySchema{
		Type:   TypeProduct,
		App:    "sources",
		Plural: "products",
		Table:  "products",
		Fields: append([]Field{
			{Name: "name", Kind: KindText, Column: "name"},
			{Name: "company", Kind: KindForeignKey, Target: TypeCompany, Required: true, Column: "company_id"},
			{Name: "notes", Kind: KindText, Column: "notes"},
		}, timestamps()...),
		Unique: []string{"name", "company"},
	}
}

func personSchema() EntitySchema {
	return EntitySchema{
		Type:   TypePerson,
		App:    "songs",
		Plural: "people",
		Table:  "people",
		Fields: append([]Field{
			{Name: "name", Kind: KindText, Column: "name"},
			{Name: "products", Kind: KindManyToMany, Target: TypeProduct,
				JoinTable: "person_products", OwnerColumn: "person_id", RefColumn: "product_id"},
			{Name: "notes", Kind: KindText, Column: "notes"},
		}, timestamps()...),
	}
}

func gameSchema() EntitySchema {
	return EntitySchema{
		Type:   TypeGame,
		App:    "games",
		Plural: "games",
		Table:  "games",
		Fields: append([]Field{
			{Name: "title", Kind: KindText, Column: "title"},
			{Name: "release_date", Kind: KindDate, Nullable: true, Column: "release_date"},
			{Name: "release_year", Kind: KindInt, Nullable: true, Column: "release_year"},
			{Name: "album_artists", Kind: KindManyToMany, Target: TypePerson,
				JoinTable: "game_album_artists", OwnerColumn: "game_id", RefColumn: "person_id"},
			{Name: "tags", Kind: KindManyToMany, Target: TypeGameTag,
				JoinTable: "game_tag_assignments", OwnerColumn: "game_id", RefColumn: "tag_id"},
			{Name: "notes", Kind: KindText, Column: "notes"},
		}, timestamps()...),
	}
}

func songSchema() EntitySchema {
	return EntitySchema{
		Type:   TypeSong,
		App:    "songs",
		Plural: "songs",
		Table:  "songs",
		Fields: append([]Field{
			{Name: "title", Kind: KindText, Column: "title"},
			{Name: "game", Kind: KindForeignKey, Target: TypeGame, Required: true, Column: "game_id"},
			{Name: "composers", Kind: KindManyToMany, Target: TypePerson,
				JoinTable: "song_composers", OwnerColumn: "song_id", RefColumn: "person_id"},
			{Name: "arrangers", Kind: KindManyToMany, Target: TypePerson,
				JoinTable: "song_arrangers", OwnerColumn: "song_id", RefColumn: "person_id"},
			{Name: "track_number", Kind: KindInt, Nullable: true, Column: "track_number"},
			{Name: "notes", Kind: KindText, Column: "notes"},
		}, timestamps()...),
		Unique: []string{"title", "game"},
	}
}

func bankSchema() EntitySchema {
	return EntitySchema{
		Type:   TypeBank,
		App:    "sources",
		Plural: "banks",
		Table:  "banks",
		Fields: append([]Field{
			{Name: "name", Kind: KindText, Column: "name"},
			{Name: "product", Kind: KindForeignKey, Target: TypeProduct, Required: true, Column: "product_id"},
			{Name: "notes", Kind: KindText, Column: "notes"},
		}, timestamps()...),
		Unique: []string{"name", "product"},
	}
}

func soundSourceSchema() EntitySchema {
	return EntitySchema{
		Type:   TypeSoundSource,
		App:    "sources",
		Plural: "soundsources",
		Table:  "sound_sources",
		Fields: append([]Field{
			{Name: "name", Kind: KindText, Column: "name"},
			{Name: "bank", Kind: KindForeignKey, Target: TypeBank, Column: "bank_id"},
			{Name: "product", Kind: KindForeignKey, Target: TypeProduct, Column: "product_id"},
			{Name: "discoverers", Kind: KindManyToMany, Target: TypeUser,
				JoinTable: "sound_source_discoverers", OwnerColumn: "sound_source_id", RefColumn: "user_id"},
			{Name: "games", Kind: KindManyToMany, Target: TypeGame,
				JoinTable: "sound_source_games", OwnerColumn: "sound_source_id", RefColumn: "game_id"},
			{Name: "songs", Kind: KindManyToMany, Target: TypeSong,
				JoinTable: "sound_source_songs", OwnerColumn: "sound_source_id", RefColumn: "song_id"},
			{Name: "notes", Kind: KindText, Column: "notes"},
		}, timestamps()...),
		Check: checkSoundSource,
	}
}

// checkSoundSource enforces that a sound source belongs to a bank, a
// product, or both. Neither set is invalid.
func checkSoundSource(rec *Record) error {
	bank := rec.Fields["bank"]
	product := rec.Fields["product"]
	if bank.Kind != ValueInt && product.Kind != ValueInt {
		return fmt.Errorf("sound source must reference a bank or a product")
	}
	return nil
}
