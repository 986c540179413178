package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/RWTH-IAEW/cimpyorm/internal/domain/schema"
	"github.com/RWTH-IAEW/cimpyorm/internal/domain/shared"
	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/persistence/models"
)

const metadataBatchSize = 200

// SchemaRepository stores a schema in the metadata tables and rebuilds it.
type SchemaRepository struct {
	db *gorm.DB
}

// NewSchemaRepository creates a schema repository.
func NewSchemaRepository(db *gorm.DB) *SchemaRepository {
	return &SchemaRepository{db: db}
}

// Save writes the schema. Inferred properties are not stored; Load
// synthesizes them again when it links the schema.
func (r *SchemaRepository) Save(ctx context.Context, s *schema.Schema) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.SchemaInfoModel{}).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to read schema info: %w", err)
		}
		if count > 0 {
			return shared.Wrap(shared.ErrAlreadyExists, "database already holds a schema")
		}

		namespaces, err := json.Marshal(s.Namespaces)
		if err != nil {
			return err
		}
		info := &models.SchemaInfoModel{
			Version:    s.Version,
			Namespaces: string(namespaces),
			Generation: uuid.New().String(),
		}
		if err := tx.Create(info).Error; err != nil {
			return fmt.Errorf("failed to save schema info: %w", err)
		}

		nsRows := make([]models.NamespaceModel, 0, len(s.Namespaces))
		for short, uri := range s.Namespaces {
			nsRows = append(nsRows, models.NamespaceModel{Short: short, FullName: uri})
		}
		if err := create(tx, nsRows); err != nil {
			return fmt.Errorf("failed to save namespaces: %w", err)
		}

		profiles := make([]models.ProfileModel, 0, len(s.Profiles()))
		for i, p := range s.Profiles() {
			var m models.ProfileModel
			if err := m.FromDomain(p, i); err != nil {
				return err
			}
			profiles = append(profiles, m)
		}
		if err := create(tx, profiles); err != nil {
			return fmt.Errorf("failed to save profiles: %w", err)
		}

		packages := make([]models.PackageModel, 0, len(s.Packages()))
		for _, p := range s.Packages() {
			packages = append(packages, models.PackageModel{ID: p.Key(), Label: p.Name, Namespace: p.Namespace, DefinedIn: p.DefinedIn})
		}
		if err := create(tx, packages); err != nil {
			return fmt.Errorf("failed to save packages: %w", err)
		}

		datatypes := make([]models.DatatypeModel, 0, len(s.Datatypes()))
		for _, d := range s.Datatypes() {
			var m models.DatatypeModel
			m.FromDomain(d)
			datatypes = append(datatypes, m)
		}
		if err := create(tx, datatypes); err != nil {
			return fmt.Errorf("failed to save datatypes: %w", err)
		}

		if err := saveEnums(tx, s.Enums()); err != nil {
			return err
		}
		return saveClasses(tx, s.Classes())
	})
}

func saveEnums(tx *gorm.DB, enums []*schema.Enum) error {
	rows := make([]models.EnumModel, 0, len(enums))
	var values []models.EnumValueModel
	for _, e := range enums {
		usedIn, err := json.Marshal(e.UsedIn)
		if err != nil {
			return err
		}
		rows = append(rows, models.EnumModel{
			ID:        e.Key(),
			Label:     e.Name,
			Namespace: e.Namespace,
			Package:   e.Package,
			DefinedIn: e.DefinedIn,
			UsedIn:    string(usedIn),
		})
		for i, v := range e.Values {
			values = append(values, models.EnumValueModel{
				ID:        e.Key() + "." + v.Name,
				EnumID:    e.Key(),
				Label:     v.Name,
				Namespace: v.Namespace,
				DefinedIn: v.DefinedIn,
				Position:  i,
			})
		}
	}
	if err := create(tx, rows); err != nil {
		return fmt.Errorf("failed to save enumerations: %w", err)
	}
	if err := create(tx, values); err != nil {
		return fmt.Errorf("failed to save enumeration values: %w", err)
	}
	return nil
}

func saveClasses(tx *gorm.DB, classes []*schema.Class) error {
	rows := make([]models.ClassModel, 0, len(classes))
	var (
		classProfiles []models.ClassProfileModel
		props         []models.PropModel
		propProfiles  []models.PropProfileModel
	)
	for i, c := range classes {
		var m models.ClassModel
		m.FromDomain(c, i)
		rows = append(rows, m)
		for _, profile := range c.UsedIn {
			classProfiles = append(classProfiles, models.ClassProfileModel{ClassID: m.ID, ProfileName: profile})
		}

		position := 0
		for _, p := range c.Props {
			if p.Inferred {
				continue
			}
			var pm models.PropModel
			pm.FromDomain(m.ID, p, position)
			position++
			props = append(props, pm)
			for _, profile := range p.AllowedIn {
				propProfiles = append(propProfiles, models.PropProfileModel{PropID: pm.ID, ProfileName: profile})
			}
		}
	}
	if err := create(tx, rows); err != nil {
		return fmt.Errorf("failed to save classes: %w", err)
	}
	if err := create(tx, classProfiles); err != nil {
		return fmt.Errorf("failed to save class profiles: %w", err)
	}
	if err := create(tx, props); err != nil {
		return fmt.Errorf("failed to save properties: %w", err)
	}
	if err := create(tx, propProfiles); err != nil {
		return fmt.Errorf("failed to save property profiles: %w", err)
	}
	return nil
}

func create[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(rows, metadataBatchSize).Error
}

// Generation returns the token written when the schema was saved. Every
// Save into a reset database yields a new one.
func (r *SchemaRepository) Generation(ctx context.Context) (string, error) {
	var info models.SchemaInfoModel
	if err := r.db.WithContext(ctx).Order("id").First(&info).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", shared.Wrap(shared.ErrNotFound, "database holds no schema")
		}
		return "", fmt.Errorf("failed to read schema info: %w", err)
	}
	return info.Generation, nil
}

// Load rebuilds and links the stored schema.
func (r *SchemaRepository) Load(ctx context.Context) (*schema.Schema, error) {
	db := r.db.WithContext(ctx)

	var info models.SchemaInfoModel
	if err := db.Order("id").First(&info).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.Wrap(shared.ErrNotFound, "database holds no schema")
		}
		return nil, fmt.Errorf("failed to read schema info: %w", err)
	}
	var namespaces map[string]string
	if info.Namespaces != "" {
		if err := json.Unmarshal([]byte(info.Namespaces), &namespaces); err != nil {
			return nil, fmt.Errorf("invalid schema namespaces: %w", err)
		}
	}
	s := schema.New(info.Version, namespaces)

	var profiles []models.ProfileModel
	if err := db.Order("position").Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}
	for i := range profiles {
		p, err := profiles[i].ToDomain()
		if err != nil {
			return nil, err
		}
		s.AddProfile(p)
	}

	var packages []models.PackageModel
	if err := db.Find(&packages).Error; err != nil {
		return nil, fmt.Errorf("failed to read packages: %w", err)
	}
	for _, p := range packages {
		s.AddPackage(&schema.Package{Name: p.Label, Namespace: p.Namespace, DefinedIn: p.DefinedIn})
	}

	var datatypes []models.DatatypeModel
	if err := db.Find(&datatypes).Error; err != nil {
		return nil, fmt.Errorf("failed to read datatypes: %w", err)
	}
	for i := range datatypes {
		s.AddDatatype(datatypes[i].ToDomain())
	}

	if err := loadEnums(db, s); err != nil {
		return nil, err
	}
	if err := loadClasses(db, s); err != nil {
		return nil, err
	}
	if err := s.Link(); err != nil {
		return nil, fmt.Errorf("stored schema is inconsistent: %w", err)
	}
	return s, nil
}

func loadEnums(db *gorm.DB, s *schema.Schema) error {
	var enums []models.EnumModel
	if err := db.Order("id").Find(&enums).Error; err != nil {
		return fmt.Errorf("failed to read enumerations: %w", err)
	}
	var values []models.EnumValueModel
	if err := db.Order("enum_id").Order("position").Find(&values).Error; err != nil {
		return fmt.Errorf("failed to read enumeration values: %w", err)
	}
	byEnum := make(map[string][]*schema.EnumValue)
	for _, v := range values {
		byEnum[v.EnumID] = append(byEnum[v.EnumID], &schema.EnumValue{Name: v.Label, Namespace: v.Namespace, DefinedIn: v.DefinedIn})
	}
	for _, m := range enums {
		e := &schema.Enum{Name: m.Label, Namespace: m.Namespace, Package: m.Package, DefinedIn: m.DefinedIn}
		if m.UsedIn != "" {
			if err := json.Unmarshal([]byte(m.UsedIn), &e.UsedIn); err != nil {
				return fmt.Errorf("enumeration %s: invalid profiles: %w", m.ID, err)
			}
		}
		e.Values = byEnum[m.ID]
		s.AddEnum(e)
	}
	return nil
}

func loadClasses(db *gorm.DB, s *schema.Schema) error {
	var classes []models.ClassModel
	if err := db.Order("position").Find(&classes).Error; err != nil {
		return fmt.Errorf("failed to read classes: %w", err)
	}
	var classProfiles []models.ClassProfileModel
	if err := db.Find(&classProfiles).Error; err != nil {
		return fmt.Errorf("failed to read class profiles: %w", err)
	}
	var props []models.PropModel
	if err := db.Order("class_id").Order("position").Find(&props).Error; err != nil {
		return fmt.Errorf("failed to read properties: %w", err)
	}
	var propProfiles []models.PropProfileModel
	if err := db.Find(&propProfiles).Error; err != nil {
		return fmt.Errorf("failed to read property profiles: %w", err)
	}

	usedIn := make(map[string][]string)
	for _, cp := range classProfiles {
		usedIn[cp.ClassID] = append(usedIn[cp.ClassID], cp.ProfileName)
	}
	allowedIn := make(map[string][]string)
	for _, pp := range propProfiles {
		allowedIn[pp.PropID] = append(allowedIn[pp.PropID], pp.ProfileName)
	}
	propsOf := make(map[string][]models.PropModel)
	for _, p := range props {
		propsOf[p.ClassID] = append(propsOf[p.ClassID], p)
	}

	for i := range classes {
		m := &classes[i]
		c := m.ToDomain()
		c.UsedIn = usedIn[m.ID]
		for j := range propsOf[m.ID] {
			pm := &propsOf[m.ID][j]
			p := pm.ToDomain(c.Name)
			p.AllowedIn = allowedIn[pm.ID]
			c.Props = append(c.Props, p)
		}
		s.AddClass(c)
	}
	return nil
}
