package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mugiliam/hatchdockstore/pkg/types"
)

/*
          Column            |           Type           | Nullable |      Default
-----------------------------+--------------------------+----------+-------------------
 entry_id                    | uuid                     | not null |
 entry_type                  | character varying(16)    | not null |
 mode                        | character varying(16)    | not null | 'FULL'
 source_control              | character varying(64)    | not null |
 organization                | character varying(128)   | not null |
 repository                  | character varying(128)   | not null |
 entry_name                  | character varying(128)   | not null | ''
 path                        | character varying(512)   | not null |
 descriptor_language         | character varying(8)     | not null |
 default_descriptor_path     | character varying(1024)  | not null |
 default_test_parameter_path | character varying(1024)  | not null | ''
 default_version             | character varying(256)   |          |
 is_published                | boolean                  | not null | false
 is_checker                  | boolean                  | not null | false
 checker_id                  | uuid                     |          |
 author                      | text                     | not null | ''
 email                       | text                     | not null | ''
 description                 | text                     | not null | ''
 image_registry              | character varying(256)   | not null | ''
 image_namespace             | character varying(256)   | not null | ''
 image_name                  | character varying(256)   | not null | ''
 created_at                  | timestamp with time zone | not null | now()
 last_updated                | timestamp with time zone | not null | now()
Indexes:
    "entries_pkey" PRIMARY KEY, btree (entry_id)
    "entries_path_key" UNIQUE CONSTRAINT, btree (path)
    "entries_checker_id_key" UNIQUE CONSTRAINT, btree (checker_id)
*/

type Entry struct {
	EntryID                  uuid.UUID                `db:"entry_id"`
	EntryType                types.EntryType          `db:"entry_type"`
	Mode                     types.WorkflowMode       `db:"mode"`
	SourceControl            types.SourceControl      `db:"source_control"`
	Organization             string                   `db:"organization"`
	Repository               string                   `db:"repository"`
	EntryName                string                   `db:"entry_name"`
	Path                     string                   `db:"path"`
	DescriptorLanguage       types.DescriptorLanguage `db:"descriptor_language"`
	DefaultDescriptorPath    string                   `db:"default_descriptor_path"`
	DefaultTestParameterPath string                   `db:"default_test_parameter_path"`
	DefaultVersion           *string                  `db:"default_version"`
	IsPublished              bool                     `db:"is_published"`
	IsChecker                bool                     `db:"is_checker"`
	CheckerID                *uuid.UUID               `db:"checker_id"`
	Author                   string                   `db:"author"`
	Email                    string                   `db:"email"`
	Description              string                   `db:"description"`
	ImageRegistry            string                   `db:"image_registry"`
	ImageNamespace           string                   `db:"image_namespace"`
	ImageName                string                   `db:"image_name"`
	CreatedAt                time.Time                `db:"created_at"`
	LastUpdated              time.Time                `db:"last_updated"`
}

// EntryPath builds the unique path of an entry: source control, organization and
// repository, followed by the entry name when the repository holds several entries.
func EntryPath(sc types.SourceControl, org, repo, name string) string {
	parts := []string{string(sc), org, repo}
	if name != "" {
		parts = append(parts, name)
	}
	return strings.Join(parts, "/")
}

func (e *Entry) IsHosted() bool {
	return e.Mode == types.WorkflowModeHosted
}

func (e *Entry) HasImage() bool {
	return e.EntryType == types.EntryTypeTool && e.ImageRegistry != "" && e.ImageName != ""
}
