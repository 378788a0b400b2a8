package versionsync

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/mugiliam/hatchdockstore/internal/db/models"
	"github.com/mugiliam/hatchdockstore/internal/imageregistry"
	"github.com/mugiliam/hatchdockstore/internal/language"
	"github.com/mugiliam/hatchdockstore/internal/scm"
	"github.com/mugiliam/hatchdockstore/pkg/types"
	"github.com/rs/zerolog/log"
)

type builtVersion struct {
	version models.Version
	files   []models.SourceFile
	isNew   bool
}

func absPath(p string) string {
	return "/" + strings.TrimPrefix(p, "/")
}

// buildVersion fetches and validates one upstream version. Descriptor problems
// end up in the version's validation message; only upstream failures are
// returned.
func (s *Synchronizer) buildVersion(ctx context.Context, conn scm.Connector, repo scm.RepoCoordinate,
	plugin language.Plugin, entry *models.Entry, p plan) (builtVersion, error) {

	var v models.Version
	isNew := p.existing == nil
	if isNew {
		v = models.Version{VersionID: uuid.New(), EntryID: entry.EntryID, Name: p.ref.Name}
	} else {
		v = *p.existing
	}
	ref := p.ref
	read := func(ctx context.Context, path string) ([]byte, error) {
		return conn.ReadFile(ctx, repo, path, ref.Name)
	}

	v.Reference = ref.Name
	v.ReferenceType = ref.Type
	v.CommitID = nil
	if ref.CommitID != "" {
		commit := ref.CommitID
		v.CommitID = &commit
	}
	t := s.now().UTC()
	if ref.CommitDate != nil {
		t = ref.CommitDate.UTC()
	}
	v.LastModified = &t

	files, err := s.validate(ctx, read, plugin, entry, &v)
	if err != nil {
		return builtVersion{}, err
	}

	if entry.HasImage() && s.images != nil {
		img, err := s.images.GetImage(ctx, imageregistry.ImageRef{
			Registry:  entry.ImageRegistry,
			Namespace: entry.ImageNamespace,
			Name:      entry.ImageName,
			Tag:       ref.Name,
		})
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("entry", entry.Path).Str("version", ref.Name).
				Msg("failed to resolve image")
			return builtVersion{}, err
		}
		v.ImageMetadata = img
	}
	return builtVersion{version: v, files: files, isNew: isNew}, nil
}

// BuildHostedVersion validates files edited directly on a hosted entry and
// returns the new version called name together with its source files. Every
// file is kept, whether or not the descriptor references it.
func (s *Synchronizer) BuildHostedVersion(ctx context.Context, entry *models.Entry, name string, files map[string]string,
	fileTypes map[string]types.FileType) (*models.Version, []models.SourceFile, error) {

	plugin, err := language.For(entry.DescriptorLanguage)
	if err != nil {
		return nil, nil, err
	}
	now := s.now().UTC()
	v := models.Version{
		VersionID:     uuid.New(),
		EntryID:       entry.EntryID,
		Name:          name,
		Reference:     name,
		ReferenceType: types.ReferenceTypeNone,
		LastModified:  &now,
	}
	for p, ft := range fileTypes {
		if ft.IsTestParameter() {
			v.TestParameterPaths = append(v.TestParameterPaths, p)
		}
	}
	sort.Strings(v.TestParameterPaths)

	read := func(_ context.Context, path string) ([]byte, error) {
		c, ok := files[path]
		if !ok {
			c, ok = files[absPath(path)]
		}
		if !ok {
			return nil, scm.ErrFileNotFound.Msg(path + " not found")
		}
		return []byte(c), nil
	}
	stored, err := s.validate(ctx, read, plugin, entry, &v)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[string]bool, len(stored))
	for _, f := range stored {
		seen[f.AbsolutePath] = true
	}
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if seen[p] {
			continue
		}
		ft, ok := fileTypes[p]
		if !ok {
			ft = plugin.FileType(p)
		}
		stored = append(stored, models.SourceFile{
			FileID:       uuid.New(),
			VersionID:    v.VersionID,
			Type:         ft,
			AbsolutePath: p,
			Content:      files[p],
		})
	}
	return &v, stored, nil
}

// validate reads the descriptor, its imports and its test parameter files
// through read and records the outcome on v.
func (s *Synchronizer) validate(ctx context.Context, read language.FileReader, plugin language.Plugin,
	entry *models.Entry, v *models.Version) ([]models.SourceFile, error) {

	logger := log.Ctx(ctx).With().Str("entry", entry.Path).Str("version", v.Name).Logger()
	descriptorPath := absPath(v.EffectiveDescriptorPath(entry))
	v.DescriptorPath = descriptorPath

	var files []models.SourceFile
	addFile := func(path, content string, ft types.FileType) {
		files = append(files, models.SourceFile{
			FileID:       uuid.New(),
			VersionID:    v.VersionID,
			Type:         ft,
			AbsolutePath: path,
			Content:      content,
		})
	}

	primary := ""
	var result language.Result
	b, err := read(ctx, descriptorPath)
	switch {
	case err == nil:
		primary = string(b)
		addFile(descriptorPath, primary, plugin.FileType(descriptorPath))

		imports, err := language.ResolveImports(ctx, read, plugin, primary, descriptorPath, s.opts.MaxImportDepth)
		if err != nil {
			return nil, err
		}
		importPaths := make([]string, 0, len(imports.Files))
		for p := range imports.Files {
			importPaths = append(importPaths, p)
		}
		sort.Strings(importPaths)
		for _, p := range importPaths {
			addFile(p, imports.Files[p], plugin.FileType(p))
		}

		params := make(map[string]string)
		var defaultParams string
		for _, tp := range v.EffectiveTestParameterPaths(entry) {
			tp = absPath(tp)
			if _, dup := params[tp]; dup {
				continue
			}
			c, err := read(ctx, tp)
			if err != nil {
				if errors.Is(err, scm.ErrFileNotFound) {
					logger.Debug().Str("path", tp).Msg("test parameter file not found")
					continue
				}
				return nil, err
			}
			if len(params) == 0 {
				defaultParams = tp
			}
			params[tp] = string(c)
			if _, isImport := imports.Files[tp]; !isImport && tp != descriptorPath {
				addFile(tp, string(c), plugin.Language().TestParameterFileType())
			}
		}

		result = plugin.Validate(language.ValidationInput{
			EntryType:      entry.EntryType,
			PrimaryPath:    descriptorPath,
			Primary:        primary,
			Imports:        imports.Files,
			MissingImports: imports.Missing,
			TestParameters: params,
		})
		v.PublicAccessibleTestParameterFile = s.publicAccessible(ctx, plugin, primary, result, defaultParams, params,
			v.PublicAccessibleTestParameterFile)
	case errors.Is(err, scm.ErrFileNotFound):
		result = language.Result{Message: "descriptor " + descriptorPath + " not found"}
		v.PublicAccessibleTestParameterFile = nil
	default:
		return nil, err
	}
	v.Valid = result.Valid
	v.ValidationMessage = result.Message

	md, err := language.ResolveMetadata(ctx, plugin, primary, read)
	if err != nil {
		return nil, err
	}
	v.Author = md.Author
	v.Email = md.Email
	v.Description = md.Description
	v.Synced = true

	logger.Debug().Bool("valid", v.Valid).Int("files", len(files)).Msg("version validated")
	return files, nil
}

// publicAccessible decides whether the default test parameter file only points
// at public files. A descriptor without File inputs is public whatever the
// parameters hold. stored is kept when there is no checker to ask.
func (s *Synchronizer) publicAccessible(ctx context.Context, plugin language.Plugin, primary string,
	result language.Result, defaultParams string, params map[string]string, stored *bool) *bool {

	inputs, err := plugin.FileInputs(primary)
	if err != nil {
		return nil
	}
	if len(inputs) == 0 {
		public := true
		return &public
	}
	if s.checker == nil {
		return stored
	}
	if !result.Valid {
		return nil
	}
	var js []byte
	if defaultParams != "" {
		js, err = language.TestParameterJSON(plugin.Language(), defaultParams, params[defaultParams])
		if err != nil {
			return nil
		}
	}
	return s.checker.PublicAccessible(ctx, plugin.Language(), inputs, js)
}
