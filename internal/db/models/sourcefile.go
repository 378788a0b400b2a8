package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mugiliam/hatchdockstore/pkg/types"
)

/*
    Column     |           Type           | Nullable | Default
---------------+--------------------------+----------+---------
 file_id       | uuid                     | not null |
 version_id    | uuid                     | not null |
 file_type     | character varying(32)    | not null |
 absolute_path | character varying(1024)  | not null |
 content       | bytea                    | not null |   -- snappy encoded
 created_at    | timestamp with time zone | not null | now()
Indexes:
    "sourcefiles_pkey" PRIMARY KEY, btree (file_id)
    "sourcefiles_version_id_absolute_path_key" UNIQUE CONSTRAINT, btree (version_id, absolute_path)
*/

type SourceFile struct {
	FileID       uuid.UUID      `db:"file_id"`
	VersionID    uuid.UUID      `db:"version_id"`
	Type         types.FileType `db:"file_type"`
	AbsolutePath string         `db:"absolute_path"`
	Content      string         `db:"-"`
	CreatedAt    time.Time      `db:"created_at"`
}
