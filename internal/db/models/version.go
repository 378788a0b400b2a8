package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mugiliam/hatchdockstore/pkg/types"
)

/*
              Column                 |           Type           | Nullable | Default
--------------------------------------+--------------------------+----------+---------
 version_id                           | uuid                     | not null |
 entry_id                             | uuid                     | not null |
 name                                 | character varying(256)   | not null |
 reference                            | character varying(256)   | not null |
 reference_type                       | character varying(8)     | not null |
 commit_id                            | character varying(64)    |          |
 valid                                | boolean                  | not null | false
 validation_message                   | text                     | not null | ''
 hidden                               | boolean                  | not null | false
 dirty_bit                            | boolean                  | not null | false
 synced                               | boolean                  | not null | false
 last_modified                        | timestamp with time zone |          |
 descriptor_path_override             | character varying(1024)  |          |
 descriptor_path                      | character varying(1024)  | not null | ''
 test_parameter_paths                 | text[]                   | not null | '{}'
 author                               | text                     | not null | ''
 email                                | text                     | not null | ''
 description                          | text                     | not null | ''
 public_accessible_test_parameter_file| boolean                  |          |
 image_metadata                       | jsonb                    |          |
 created_at                           | timestamp with time zone | not null | now()
 updated_at                           | timestamp with time zone | not null | now()
Indexes:
    "versions_pkey" PRIMARY KEY, btree (version_id)
    "versions_entry_id_name_key" UNIQUE CONSTRAINT, btree (entry_id, name)
Foreign-key constraints:
    "versions_entry_id_fkey" FOREIGN KEY (entry_id) REFERENCES entries(entry_id) ON DELETE CASCADE
*/

type Version struct {
	VersionID         uuid.UUID           `db:"version_id"`
	EntryID           uuid.UUID           `db:"entry_id"`
	Name              string              `db:"name"`
	Reference         string              `db:"reference"`
	ReferenceType     types.ReferenceType `db:"reference_type"`
	CommitID          *string             `db:"commit_id"`
	Valid             bool                `db:"valid"`
	ValidationMessage string              `db:"validation_message"`
	Hidden            bool                `db:"hidden"`
	DirtyBit          bool                `db:"dirty_bit"`
	Synced            bool                `db:"synced"`
	LastModified      *time.Time          `db:"last_modified"`
	// DescriptorPathOverride is set when the path was edited on the version itself.
	DescriptorPathOverride *string `db:"descriptor_path_override"`
	// DescriptorPath is the path the version was last validated against.
	DescriptorPath                    string         `db:"descriptor_path"`
	TestParameterPaths                []string       `db:"-"`
	Author                            string         `db:"author"`
	Email                             string         `db:"email"`
	Description                       string         `db:"description"`
	PublicAccessibleTestParameterFile *bool          `db:"public_accessible_test_parameter_file"`
	ImageMetadata                     *ImageMetadata `db:"-"`
	CreatedAt                         time.Time      `db:"created_at"`
	UpdatedAt                         time.Time      `db:"updated_at"`
}

// ImageMetadata is the last known state of a tool version's container image.
type ImageMetadata struct {
	ImageID   string     `json:"image_id"`
	Checksums []Checksum `json:"checksums"`
	Size      int64      `json:"size"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type Checksum struct {
	Type     string `json:"type"`
	Checksum string `json:"checksum"`
}

// EffectiveDescriptorPath returns the version's override, falling back to the entry default.
func (v *Version) EffectiveDescriptorPath(e *Entry) string {
	if v.DescriptorPathOverride != nil && *v.DescriptorPathOverride != "" {
		return *v.DescriptorPathOverride
	}
	return e.DefaultDescriptorPath
}

// EffectiveTestParameterPaths returns the version's test parameter paths, falling
// back to the entry default when the version names none.
func (v *Version) EffectiveTestParameterPaths(e *Entry) []string {
	if len(v.TestParameterPaths) > 0 {
		return v.TestParameterPaths
	}
	if e.DefaultTestParameterPath != "" {
		return []string{e.DefaultTestParameterPath}
	}
	return nil
}
