package catalog

// Project is catalog metadata about one pack or mod.
type Project struct {
	// ID is the catalog's project id.
	ID string `json:"id"`
	// Slug is the human-friendly identifier usable in place of the id.
	Slug string `json:"slug"`
	// Title is the display name.
	Title string `json:"title"`
	// Description is the short summary shown in search results.
	Description string `json:"description"`
	// ProjectType is "mod", "modpack", "resourcepack" or "shader".
	ProjectType string `json:"project_type"`
	// Downloads counts total downloads across all versions.
	Downloads int64 `json:"downloads"`
}

// SearchHit is one search result.
type SearchHit struct {
	// ProjectID is the catalog's project id.
	ProjectID string `json:"project_id"`
	// Slug is the human-friendly identifier.
	Slug string `json:"slug"`
	// Title is the display name.
	Title string `json:"title"`
	// Description is the short summary.
	Description string `json:"description"`
	// Downloads counts total downloads across all versions.
	Downloads int64 `json:"downloads"`
}

// searchResponse is the catalog's search envelope.
type searchResponse struct {
	Hits []SearchHit `json:"hits"`
}

// versionDependency is one declared dependency of a version.
type versionDependency struct {
	VersionID      string `json:"version_id"`
	ProjectID      string `json:"project_id"`
	DependencyType string `json:"dependency_type"`
}

// versionFile is one downloadable file of a version.
type versionFile struct {
	Hashes   map[string]string `json:"hashes"`
	URL      string            `json:"url"`
	Filename string            `json:"filename"`
	Primary  bool              `json:"primary"`
	Size     int64             `json:"size"`
}

// projectVersion is one published version of a project.
type projectVersion struct {
	ID            string              `json:"id"`
	ProjectID     string              `json:"project_id"`
	Name          string              `json:"name"`
	VersionNumber string              `json:"version_number"`
	GameVersions  []string            `json:"game_versions"`
	Loaders       []string            `json:"loaders"`
	Dependencies  []versionDependency `json:"dependencies"`
	Files         []versionFile       `json:"files"`
}

// primaryFile returns the version's primary file, or the first file when
// none is marked primary.
func (v *projectVersion) primaryFile() (versionFile, bool) {
	for _, f := range v.Files {
		if f.Primary {
			return f, true
		}
	}

	if len(v.Files) > 0 {
		return v.Files[0], true
	}

	return versionFile{}, false
}

// loaderEntry is one Fabric loader build for a game version, with the
// launcher metadata needed to assemble its classpath.
type loaderEntry struct {
	Loader struct {
		Version string `json:"version"`
		Maven   string `json:"maven"`
		Stable  bool   `json:"stable"`
	} `json:"loader"`
	Intermediary struct {
		Version string `json:"version"`
		Maven   string `json:"maven"`
	} `json:"intermediary"`
	LauncherMeta struct {
		MinJavaVersion int `json:"min_java_version"`
		Libraries      struct {
			Client []loaderLibrary `json:"client"`
			Common []loaderLibrary `json:"common"`
		} `json:"libraries"`
		MainClass struct {
			Client string `json:"client"`
		} `json:"mainClass"`
	} `json:"launcherMeta"`
}

// loaderLibrary is one library the loader requires, named by Maven
// coordinate with the repository base it downloads from.
type loaderLibrary struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Sha1 string `json:"sha1"`
	Size int64  `json:"size"`
}

// gameManifest is the index of all published game versions.
type gameManifest struct {
	Versions []struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"versions"`
}

// gameVersionMeta is the full metadata of one game version.
type gameVersionMeta struct {
	MainClass string `json:"mainClass"`
	Downloads struct {
		Client struct {
			Sha1 string `json:"sha1"`
			Size int64  `json:"size"`
			URL  string `json:"url"`
		} `json:"client"`
	} `json:"downloads"`
	JavaVersion struct {
		MajorVersion int `json:"majorVersion"`
	} `json:"javaVersion"`
	Libraries []gameLibrary `json:"libraries"`
}

// gameLibrary is one vanilla library with its download location and
// platform rules.
type gameLibrary struct {
	Name      string `json:"name"`
	Downloads struct {
		Artifact struct {
			Path string `json:"path"`
			Sha1 string `json:"sha1"`
			Size int64  `json:"size"`
			URL  string `json:"url"`
		} `json:"artifact"`
	} `json:"downloads"`
	Rules []gameLibraryRule `json:"rules"`
}

// gameLibraryRule allows or disallows a library per platform.
type gameLibraryRule struct {
	Action string `json:"action"`
	OS     struct {
		Name string `json:"name"`
	} `json:"os"`
}
