package index

import (
	"maps"

	pkgerrors "github.com/cperrin88/reposync/pkg/errors"
	"github.com/cperrin88/reposync/pkg/model"
)

// The Apply functions implement RFC 7386 merge patches over the catalog records. An absent
// key keeps the stored value, null clears a nullable field, and any other value replaces
// it. Localized maps are merged per locale. Nested records missing from the stored value
// are built from the patch, which must then carry all of their required fields. Clearing a
// required field is a decode error and no record is produced.

func notNullable(field string) error {
	return pkgerrors.ErrDecodef("%s is not nullable", field)
}

func missing(field string) error {
	return pkgerrors.ErrDecodef("%s required but not found", field)
}

func denied(field string) error {
	return pkgerrors.ErrDecodef("%s must not be part of a diff", field)
}

// set applies a scalar or list field. Nullable fields are reset to their zero value.
func set[T any](dst *T, o Opt[T], field string, nullable bool) error {
	if !o.Set {
		return nil
	}
	if o.Null {
		if !nullable {
			return notNullable(field)
		}
		var zero T
		*dst = zero
		return nil
	}
	*dst = o.Value
	return nil
}

// require applies a field that a newly constructed record must carry.
func require[T any](dst *T, o Opt[T], field string) error {
	if !o.Set {
		return missing(field)
	}
	return set(dst, o, field, false)
}

func applyText(dst model.LocalizedText, o Opt[TextPatch]) model.LocalizedText {
	if !o.Set {
		return dst
	}
	if o.Null {
		return nil
	}
	out := maps.Clone(dst)
	if out == nil {
		out = make(model.LocalizedText, len(o.Value))
	}
	for locale, text := range o.Value {
		if text == nil {
			delete(out, locale)
			continue
		}
		out[locale] = *text
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func applyFiles(dst model.LocalizedFile, o Opt[FilesPatch], field string) (model.LocalizedFile, error) {
	if !o.Set {
		return dst, nil
	}
	if o.Null {
		return nil, nil
	}
	out := maps.Clone(dst)
	if out == nil {
		out = make(model.LocalizedFile, len(o.Value))
	}
	for locale, p := range o.Value {
		if p == nil {
			delete(out, locale)
			continue
		}
		var (
			f   model.File
			err error
		)
		if existing, ok := out[locale]; ok {
			f, err = ApplyFilePatch(existing, *p)
		} else {
			f, err = NewFile(*p)
		}
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "%s.%s", field, locale)
		}
		out[locale] = f
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// ApplyFilePatch patches f.
func ApplyFilePatch(f model.File, p FilePatch) (model.File, error) {
	if err := set(&f.Name, p.Name, "file.name", false); err != nil {
		return model.File{}, err
	}
	if err := set(&f.SHA256, p.SHA256, "file.sha256", true); err != nil {
		return model.File{}, err
	}
	if err := set(&f.Size, p.Size, "file.size", true); err != nil {
		return model.File{}, err
	}
	if err := set(&f.IPFSCIDv1, p.IPFSCIDv1, "file.ipfsCIDv1", true); err != nil {
		return model.File{}, err
	}
	return f, nil
}

// NewFile builds a file from a patch that must name it.
func NewFile(p FilePatch) (model.File, error) {
	var f model.File
	if err := require(&f.Name, p.Name, "file.name"); err != nil {
		return model.File{}, err
	}
	return ApplyFilePatch(f, p)
}

// optionalFile patches a nullable nested file.
func optionalFile(dst *model.File, o Opt[FilePatch], field string) (*model.File, error) {
	if !o.Set {
		return dst, nil
	}
	if o.Null {
		return nil, nil
	}
	var (
		f   model.File
		err error
	)
	if dst == nil {
		f, err = NewFile(o.Value)
	} else {
		f, err = ApplyFilePatch(*dst, o.Value)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, field)
	}
	return &f, nil
}

// ApplyMetadataPatch patches m. added and lastUpdated cannot be cleared.
func ApplyMetadataPatch(m model.Metadata, p MetadataPatch) (model.Metadata, error) {
	if p.RepoID.Set {
		return model.Metadata{}, denied("metadata.repoId")
	}
	if p.PackageName.Set {
		return model.Metadata{}, denied("metadata.packageName")
	}

	m.Name = applyText(m.Name, p.Name)
	m.Summary = applyText(m.Summary, p.Summary)
	m.Description = applyText(m.Description, p.Description)

	for _, f := range []struct {
		dst      *int64
		o        Opt[int64]
		name     string
		nullable bool
	}{
		{&m.Added, p.Added, "metadata.added", false},
		{&m.LastUpdated, p.LastUpdated, "metadata.lastUpdated", false},
	} {
		if err := set(f.dst, f.o, f.name, f.nullable); err != nil {
			return model.Metadata{}, err
		}
	}

	for _, f := range []struct {
		dst *string
		o   Opt[string]
	}{
		{&m.WebSite, p.WebSite},
		{&m.Changelog, p.Changelog},
		{&m.License, p.License},
		{&m.SourceCode, p.SourceCode},
		{&m.IssueTracker, p.IssueTracker},
		{&m.Translation, p.Translation},
		{&m.PreferredSigner, p.PreferredSigner},
		{&m.AuthorName, p.AuthorName},
		{&m.AuthorEmail, p.AuthorEmail},
		{&m.AuthorWebSite, p.AuthorWebSite},
		{&m.AuthorPhone, p.AuthorPhone},
		{&m.LiberapayID, p.LiberapayID},
		{&m.Liberapay, p.Liberapay},
		{&m.OpenCollective, p.OpenCollective},
		{&m.Bitcoin, p.Bitcoin},
		{&m.Litecoin, p.Litecoin},
	} {
		_ = set(f.dst, f.o, "", true)
	}
	_ = set(&m.Categories, p.Categories, "", true)
	_ = set(&m.Donate, p.Donate, "", true)

	var err error
	if m.Icon, err = applyFiles(m.Icon, p.Icon, "metadata.icon"); err != nil {
		return model.Metadata{}, err
	}
	if m.FeatureGraphic, err = applyFiles(m.FeatureGraphic, p.FeatureGraphic, "metadata.featureGraphic"); err != nil {
		return model.Metadata{}, err
	}
	return m, nil
}

// NewMetadata builds the metadata of a package that is new in the diff.
func NewMetadata(p MetadataPatch) (model.Metadata, error) {
	if !p.Added.Set {
		return model.Metadata{}, missing("metadata.added")
	}
	if !p.LastUpdated.Set {
		return model.Metadata{}, missing("metadata.lastUpdated")
	}
	return ApplyMetadataPatch(model.Metadata{}, p)
}

func applyUsesSdk(dst *model.UsesSdk, o Opt[UsesSdkPatch]) (*model.UsesSdk, error) {
	if !o.Set {
		return dst, nil
	}
	if o.Null {
		return nil, nil
	}
	var u model.UsesSdk
	if dst == nil {
		if err := require(&u.MinSdkVersion, o.Value.MinSdkVersion, "usesSdk.minSdkVersion"); err != nil {
			return nil, err
		}
		if err := require(&u.TargetSdkVersion, o.Value.TargetSdkVersion, "usesSdk.targetSdkVersion"); err != nil {
			return nil, err
		}
		return &u, nil
	}
	u = *dst
	if err := set(&u.MinSdkVersion, o.Value.MinSdkVersion, "usesSdk.minSdkVersion", false); err != nil {
		return nil, err
	}
	if err := set(&u.TargetSdkVersion, o.Value.TargetSdkVersion, "usesSdk.targetSdkVersion", false); err != nil {
		return nil, err
	}
	return &u, nil
}

func applySigner(dst *model.Signer, o Opt[SignerPatch]) (*model.Signer, error) {
	if !o.Set {
		return dst, nil
	}
	if o.Null {
		return nil, nil
	}
	var s model.Signer
	if dst == nil {
		if err := require(&s.SHA256, o.Value.SHA256, "signer.sha256"); err != nil {
			return nil, err
		}
	} else {
		s = *dst
		if err := set(&s.SHA256, o.Value.SHA256, "signer.sha256", false); err != nil {
			return nil, err
		}
	}
	_ = set(&s.HasMultipleSigners, o.Value.HasMultipleSigners, "", true)
	return &s, nil
}

// ApplyManifestPatch patches m. versionName and versionCode cannot be cleared.
func ApplyManifestPatch(m model.Manifest, p ManifestPatch) (model.Manifest, error) {
	if err := set(&m.VersionName, p.VersionName, "manifest.versionName", false); err != nil {
		return model.Manifest{}, err
	}
	if err := set(&m.VersionCode, p.VersionCode, "manifest.versionCode", false); err != nil {
		return model.Manifest{}, err
	}
	var err error
	if m.UsesSdk, err = applyUsesSdk(m.UsesSdk, p.UsesSdk); err != nil {
		return model.Manifest{}, err
	}
	if m.Signer, err = applySigner(m.Signer, p.Signer); err != nil {
		return model.Manifest{}, err
	}
	if p.MaxSdkVersion.Set {
		if p.MaxSdkVersion.Null {
			m.MaxSdkVersion = nil
		} else {
			v := p.MaxSdkVersion.Value
			m.MaxSdkVersion = &v
		}
	}
	_ = set(&m.UsesPermission, p.UsesPermission, "", true)
	_ = set(&m.NativeCode, p.NativeCode, "", true)
	_ = set(&m.Features, p.Features, "", true)
	return m, nil
}

// NewManifest builds a manifest from a patch carrying versionName and versionCode.
func NewManifest(p ManifestPatch) (model.Manifest, error) {
	var m model.Manifest
	if err := require(&m.VersionName, p.VersionName, "manifest.versionName"); err != nil {
		return model.Manifest{}, err
	}
	if err := require(&m.VersionCode, p.VersionCode, "manifest.versionCode"); err != nil {
		return model.Manifest{}, err
	}
	return ApplyManifestPatch(m, p)
}

func applyTextMap(dst map[string]model.LocalizedText, o Opt[map[string]TextPatch]) map[string]model.LocalizedText {
	if !o.Set {
		return dst
	}
	if o.Null {
		return nil
	}
	out := maps.Clone(dst)
	if out == nil {
		out = make(map[string]model.LocalizedText, len(o.Value))
	}
	for key, p := range o.Value {
		if p == nil {
			delete(out, key)
			continue
		}
		text := applyText(out[key], Some(p))
		if text == nil {
			text = model.LocalizedText{}
		}
		out[key] = text
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ApplyVersionPatch patches v. added, file and manifest cannot be cleared.
func ApplyVersionPatch(v model.PackageVersion, p VersionPatch) (model.PackageVersion, error) {
	switch {
	case p.RepoID.Set:
		return model.PackageVersion{}, denied("version.repoId")
	case p.PackageName.Set:
		return model.PackageVersion{}, denied("version.packageName")
	case p.VersionID.Set:
		return model.PackageVersion{}, denied("version.versionId")
	}

	if err := set(&v.Added, p.Added, "version.added", false); err != nil {
		return model.PackageVersion{}, err
	}
	if p.File.Set {
		if p.File.Null {
			return model.PackageVersion{}, notNullable("version.file")
		}
		f, err := ApplyFilePatch(v.File, p.File.Value)
		if err != nil {
			return model.PackageVersion{}, err
		}
		v.File = f
	}
	var err error
	if v.Src, err = optionalFile(v.Src, p.Src, "version.src"); err != nil {
		return model.PackageVersion{}, err
	}
	if p.Manifest.Set {
		if p.Manifest.Null {
			return model.PackageVersion{}, notNullable("version.manifest")
		}
		if v.Manifest, err = ApplyManifestPatch(v.Manifest, p.Manifest.Value); err != nil {
			return model.PackageVersion{}, err
		}
	}
	_ = set(&v.ReleaseChannels, p.ReleaseChannels, "", true)
	v.AntiFeatures = applyTextMap(v.AntiFeatures, p.AntiFeatures)
	v.WhatsNew = applyText(v.WhatsNew, p.WhatsNew)
	return v, nil
}

// NewVersion builds a version that is new in the diff.
func NewVersion(p VersionPatch) (model.PackageVersion, error) {
	var v model.PackageVersion
	if err := require(&v.Added, p.Added, "version.added"); err != nil {
		return model.PackageVersion{}, err
	}
	if !p.File.Set {
		return model.PackageVersion{}, missing("version.file")
	}
	if p.File.Null {
		return model.PackageVersion{}, notNullable("version.file")
	}
	f, err := NewFile(p.File.Value)
	if err != nil {
		return model.PackageVersion{}, err
	}
	if !p.Manifest.Set {
		return model.PackageVersion{}, missing("version.manifest")
	}
	if p.Manifest.Null {
		return model.PackageVersion{}, notNullable("version.manifest")
	}
	m, err := NewManifest(p.Manifest.Value)
	if err != nil {
		return model.PackageVersion{}, err
	}
	v.File = f
	v.Manifest = m
	p.File, p.Manifest = Opt[FilePatch]{}, Opt[ManifestPatch]{}
	return ApplyVersionPatch(v, p)
}

func applyAntiFeature(a model.AntiFeature, p AntiFeaturePatch, construct bool) (model.AntiFeature, error) {
	if construct && !p.Name.Set {
		return model.AntiFeature{}, missing("name")
	}
	if p.Name.Set && p.Name.Null {
		return model.AntiFeature{}, notNullable("name")
	}
	a.Name = applyText(a.Name, p.Name)
	a.Description = applyText(a.Description, p.Description)
	var err error
	if a.Icon, err = applyFiles(a.Icon, p.Icon, "icon"); err != nil {
		return model.AntiFeature{}, err
	}
	return a, nil
}

func applyAntiFeatures[T any](dst map[string]T, o Opt[map[string]*AntiFeaturePatch], field string,
	to func(model.AntiFeature) T, from func(T) model.AntiFeature) (map[string]T, error) {
	if !o.Set {
		return dst, nil
	}
	if o.Null {
		return nil, nil
	}
	out := maps.Clone(dst)
	if out == nil {
		out = make(map[string]T, len(o.Value))
	}
	for key, p := range o.Value {
		if p == nil {
			delete(out, key)
			continue
		}
		existing, ok := out[key]
		var base model.AntiFeature
		if ok {
			base = from(existing)
		}
		a, err := applyAntiFeature(base, *p, !ok)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "%s.%s", field, key)
		}
		out[key] = to(a)
	}
	return out, nil
}

func applyReleaseChannels(dst map[string]model.ReleaseChannel, o Opt[map[string]*ReleaseChannelPatch]) (map[string]model.ReleaseChannel, error) {
	if !o.Set {
		return dst, nil
	}
	if o.Null {
		return nil, nil
	}
	out := maps.Clone(dst)
	if out == nil {
		out = make(map[string]model.ReleaseChannel, len(o.Value))
	}
	for key, p := range o.Value {
		if p == nil {
			delete(out, key)
			continue
		}
		rc, ok := out[key]
		if !ok && !p.Name.Set {
			return nil, missing("releaseChannels." + key + ".name")
		}
		if p.Name.Set && p.Name.Null {
			return nil, notNullable("releaseChannels." + key + ".name")
		}
		rc.Name = applyText(rc.Name, p.Name)
		rc.Description = applyText(rc.Description, p.Description)
		out[key] = rc
	}
	return out, nil
}

// ApplyRepoPatch patches r. address and timestamp cannot be cleared.
func ApplyRepoPatch(r model.RepoIndex, p RepoPatch) (model.RepoIndex, error) {
	if err := set(&r.Address, p.Address, "repo.address", false); err != nil {
		return model.RepoIndex{}, err
	}
	if err := set(&r.Timestamp, p.Timestamp, "repo.timestamp", false); err != nil {
		return model.RepoIndex{}, err
	}
	_ = set(&r.WebBaseURL, p.WebBaseURL, "", true)
	_ = set(&r.Mirrors, p.Mirrors, "", true)
	r.Name = applyText(r.Name, p.Name)
	r.Description = applyText(r.Description, p.Description)

	var err error
	if r.Icon, err = applyFiles(r.Icon, p.Icon, "repo.icon"); err != nil {
		return model.RepoIndex{}, err
	}
	identity := func(a model.AntiFeature) model.AntiFeature { return a }
	if r.AntiFeatures, err = applyAntiFeatures(r.AntiFeatures, p.AntiFeatures, "repo.antiFeatures", identity, identity); err != nil {
		return model.RepoIndex{}, err
	}
	if r.Categories, err = applyAntiFeatures(r.Categories, p.Categories, "repo.categories",
		func(a model.AntiFeature) model.Category { return model.Category(a) },
		func(c model.Category) model.AntiFeature { return model.AntiFeature(c) }); err != nil {
		return model.RepoIndex{}, err
	}
	if r.ReleaseChannels, err = applyReleaseChannels(r.ReleaseChannels, p.ReleaseChannels); err != nil {
		return model.RepoIndex{}, err
	}
	return r, nil
}
