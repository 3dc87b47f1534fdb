package index

import (
	"context"
	"encoding/json"
	"io"

	pkgerrors "github.com/cperrin88/reposync/pkg/errors"
	"github.com/cperrin88/reposync/pkg/model"
)

// DiffReceiver consumes a merge-patch diff. The receiver owns the stored records and
// reconciles each patch with the Apply functions.
type DiffReceiver interface {
	ReceiveRepoDiff(patch RepoPatch, version int64) error
	// RemovePackage deletes the package with its metadata and all versions.
	RemovePackage(packageName string) error
	ReceiveMetadataDiff(packageName string, patch MetadataPatch) error
	RemoveMetadata(packageName string) error
	// ReceiveVersionsDiff patches the listed versions. A nil patch deletes that version.
	ReceiveVersionsDiff(packageName string, versions map[string]*VersionPatch) error
	RemoveAllVersions(packageName string) error
	OnStreamEnded() error
}

type packagePatch struct {
	Metadata Opt[MetadataPatch]            `json:"metadata"`
	Versions Opt[map[string]*VersionPatch] `json:"versions"`
}

// DiffProcessor reads a merge-patch diff between two v2 indexes.
type DiffProcessor struct {
	counter
	receiver DiffReceiver
	version  int64
}

// NewDiffProcessor creates a processor for a diff of the given entry version.
func NewDiffProcessor(receiver DiffReceiver, version int64) *DiffProcessor {
	return &DiffProcessor{receiver: receiver, version: version}
}

// Process streams r into the receiver.
func (p *DiffProcessor) Process(ctx context.Context, r io.Reader) error {
	dec := json.NewDecoder(r)
	err := walkObject(dec, func(key string) error {
		switch key {
		case keyRepo:
			var patch *RepoPatch
			if err := dec.Decode(&patch); err != nil {
				return decodeErr(err, keyRepo)
			}
			if patch == nil {
				return notNullable(keyRepo)
			}
			return p.receiver.ReceiveRepoDiff(*patch, p.version)
		case keyPackages:
			return walkObject(dec, func(name string) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				var patch *packagePatch
				if err := dec.Decode(&patch); err != nil {
					return decodeErr(err, "packages."+name)
				}
				if err := p.receivePackage(name, patch); err != nil {
					return err
				}
				p.inc()
				return nil
			})
		default:
			return skip(dec, key)
		}
	})
	if err != nil {
		return err
	}
	return p.receiver.OnStreamEnded()
}

func (p *DiffProcessor) receivePackage(name string, patch *packagePatch) error {
	if patch == nil {
		return p.receiver.RemovePackage(name)
	}
	switch {
	case !patch.Metadata.Set:
	case patch.Metadata.Null:
		if err := p.receiver.RemoveMetadata(name); err != nil {
			return err
		}
	default:
		if err := p.receiver.ReceiveMetadataDiff(name, patch.Metadata.Value); err != nil {
			return err
		}
	}
	switch {
	case !patch.Versions.Set:
		return nil
	case patch.Versions.Null:
		return p.receiver.RemoveAllVersions(name)
	default:
		return p.receiver.ReceiveVersionsDiff(name, patch.Versions.Value)
	}
}

// ApplyVersionsDiff reconciles a versions patch with the stored versions of one package and
// returns the versions to upsert and the version ids to delete.
func ApplyVersionsDiff(stored map[string]model.PackageVersion, patches map[string]*VersionPatch) (map[string]model.PackageVersion, []string, error) {
	upsert := make(map[string]model.PackageVersion, len(patches))
	var remove []string
	for id, patch := range patches {
		if patch == nil {
			remove = append(remove, id)
			continue
		}
		var (
			v   model.PackageVersion
			err error
		)
		if existing, ok := stored[id]; ok {
			v, err = ApplyVersionPatch(existing, *patch)
		} else {
			v, err = NewVersion(*patch)
		}
		if err != nil {
			return nil, nil, pkgerrors.Wrapf(err, "versions.%s", id)
		}
		upsert[id] = v
	}
	return upsert, remove, nil
}
