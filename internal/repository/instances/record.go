package instances

import (
	"time"

	"github.com/WillHanighen/CottageLauncher/internal/domain/instance"
	"github.com/WillHanighen/CottageLauncher/internal/domain/pack"
)

// instanceRecord is the YAML form of an instance record.
// Kept separate from the domain type so the on-disk schema can stay stable
// while the domain model evolves.
type instanceRecord struct {
	Slug           string          `yaml:"slug"`
	Name           string          `yaml:"name"`
	PackID         string          `yaml:"pack_id"`
	PackVersion    string          `yaml:"pack_version"`
	GameVersion    string          `yaml:"game_version"`
	LoaderVersion  string          `yaml:"loader_version"`
	JavaMajor      int             `yaml:"java_major"`
	Status         string          `yaml:"status"`
	Content        []contentRecord `yaml:"content,omitempty"`
	Warnings       []string        `yaml:"warnings,omitempty"`
	CreatedAt      time.Time       `yaml:"created_at"`
	UpdatedAt      time.Time       `yaml:"updated_at"`
	LastLaunchedAt *time.Time      `yaml:"last_launched_at,omitempty"`
}

// contentRecord is the YAML form of one user-added content entry.
type contentRecord struct {
	ProjectID string `yaml:"project_id"`
	VersionID string `yaml:"version_id"`
	FileName  string `yaml:"file_name"`
	Sha1      string `yaml:"sha1"`
}

func recordFromDomain(inst *instance.Instance) *instanceRecord {
	rec := &instanceRecord{
		Slug:           inst.Slug,
		Name:           inst.Name,
		PackID:         inst.PackID,
		PackVersion:    inst.PackVersion,
		GameVersion:    inst.GameVersion,
		LoaderVersion:  inst.LoaderVersion,
		JavaMajor:      inst.JavaMajor,
		Status:         string(inst.Status),
		Warnings:       inst.Warnings,
		CreatedAt:      inst.CreatedAt,
		UpdatedAt:      inst.UpdatedAt,
		LastLaunchedAt: inst.LastLaunchedAt,
	}

	for _, c := range inst.Content {
		rec.Content = append(rec.Content, contentRecord(c))
	}

	return rec
}

func (r *instanceRecord) toDomain() *instance.Instance {
	inst := &instance.Instance{
		Slug:           r.Slug,
		Name:           r.Name,
		PackID:         r.PackID,
		PackVersion:    r.PackVersion,
		GameVersion:    r.GameVersion,
		LoaderVersion:  r.LoaderVersion,
		JavaMajor:      r.JavaMajor,
		Status:         instance.Status(r.Status),
		Warnings:       r.Warnings,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		LastLaunchedAt: r.LastLaunchedAt,
	}

	for _, c := range r.Content {
		inst.Content = append(inst.Content, instance.Content(c))
	}

	return inst
}

// manifestRecord is the YAML form of a resolved manifest.
type manifestRecord struct {
	PackID        string       `yaml:"pack_id"`
	PackVersion   string       `yaml:"pack_version"`
	Name          string       `yaml:"name"`
	GameVersion   string       `yaml:"game_version"`
	LoaderVersion string       `yaml:"loader_version"`
	MainClass     string       `yaml:"main_class"`
	JavaMajor     int          `yaml:"java_major"`
	Files         []fileRecord `yaml:"files"`
}

// fileRecord is the YAML form of one manifest file entry. Checksums and
// coordinates are stored in their string forms and parsed back on load, so
// a hand-edited record still goes through full validation.
type fileRecord struct {
	Name        string   `yaml:"name"`
	URLs        []string `yaml:"urls"`
	Checksum    string   `yaml:"checksum"`
	Size        int64    `yaml:"size"`
	Kind        string   `yaml:"kind"`
	Path        string   `yaml:"path,omitempty"`
	Coordinate  string   `yaml:"coordinate,omitempty"`
	OnClasspath bool     `yaml:"on_classpath,omitempty"`
	LoaderCore  bool     `yaml:"loader_core,omitempty"`
	Optional    bool     `yaml:"optional,omitempty"`
}

func manifestFromDomain(m *pack.Manifest) *manifestRecord {
	rec := &manifestRecord{
		PackID:        m.PackID,
		PackVersion:   m.PackVersion,
		Name:          m.Name,
		GameVersion:   m.GameVersion,
		LoaderVersion: m.LoaderVersion,
		MainClass:     m.MainClass,
		JavaMajor:     m.JavaMajor,
	}

	for _, f := range m.Files {
		fr := fileRecord{
			Name:        f.Name,
			URLs:        f.URLs,
			Checksum:    f.Checksum.String(),
			Size:        f.Size,
			Kind:        string(f.Kind),
			Path:        f.Path,
			OnClasspath: f.OnClasspath,
			LoaderCore:  f.LoaderCore,
			Optional:    f.Optional,
		}

		if !f.Coordinate.IsZero() {
			fr.Coordinate = f.Coordinate.String()
		}

		rec.Files = append(rec.Files, fr)
	}

	return rec
}

func (r *manifestRecord) toDomain() (*pack.Manifest, error) {
	m := &pack.Manifest{
		PackID:        r.PackID,
		PackVersion:   r.PackVersion,
		Name:          r.Name,
		GameVersion:   r.GameVersion,
		LoaderVersion: r.LoaderVersion,
		MainClass:     r.MainClass,
		JavaMajor:     r.JavaMajor,
	}

	for _, fr := range r.Files {
		sum, err := pack.ParseChecksum(fr.Checksum)
		if err != nil {
			return nil, err
		}

		f := pack.FileEntry{
			Name:        fr.Name,
			URLs:        fr.URLs,
			Checksum:    sum,
			Size:        fr.Size,
			Kind:        pack.DestKind(fr.Kind),
			Path:        fr.Path,
			OnClasspath: fr.OnClasspath,
			LoaderCore:  fr.LoaderCore,
			Optional:    fr.Optional,
		}

		if fr.Coordinate != "" {
			coord, parseErr := pack.ParseCoordinate(fr.Coordinate)
			if parseErr != nil {
				return nil, parseErr
			}

			f.Coordinate = coord
		}

		m.Files = append(m.Files, f)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}
