package storage

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-billy/v6/util"

	"github.com/kyleking/primitive-db/internal/errors"
	"github.com/kyleking/primitive-db/internal/schema"
	"github.com/kyleking/primitive-db/internal/types"
)

const (
	// DefaultMetaFile is the catalog file name inside the database directory
	DefaultMetaFile = "db_meta.json"
	// DefaultDataDir holds one data file per table
	DefaultDataDir = "data"
)

// FileRepository keeps the catalog in one JSON file and the rows of each
// table in its own data file
type FileRepository struct {
	fs       billy.Filesystem
	metaFile string
	dataDir  string
	codec    Codec
}

// FileOption configures a FileRepository
type FileOption func(*FileRepository)

// WithMetaFile overrides the catalog file name
func WithMetaFile(name string) FileOption {
	return func(r *FileRepository) {
		if name != "" {
			r.metaFile = name
		}
	}
}

// WithDataDir overrides the data directory name
func WithDataDir(name string) FileOption {
	return func(r *FileRepository) {
		if name != "" {
			r.dataDir = name
		}
	}
}

// WithCodec sets the row file format
func WithCodec(codec Codec) FileOption {
	return func(r *FileRepository) {
		if codec != nil {
			r.codec = codec
		}
	}
}

// NewFileRepository stores the database under directory on the local disk
func NewFileRepository(directory string, opts ...FileOption) (*FileRepository, error) {
	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	return newFileRepository(osfs.New(directory), opts...), nil
}

// NewMemoryRepository keeps the database in memory
func NewMemoryRepository(opts ...FileOption) *FileRepository {
	return newFileRepository(memfs.New(), opts...)
}

func newFileRepository(fs billy.Filesystem, opts ...FileOption) *FileRepository {
	r := &FileRepository{
		fs:       fs,
		metaFile: DefaultMetaFile,
		dataDir:  DefaultDataDir,
		codec:    JSONCodec{},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// LoadSchema reads the catalog. A missing catalog is an empty database.
func (r *FileRepository) LoadSchema(ctx context.Context) (*schema.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := r.readFile(r.metaFile)
	if err != nil {
		if errors.IsNotExist(err) {
			return schema.NewStore(), nil
		}

		return nil, errors.Wrap(err, errors.ErrTypeStorage, "failed to read metadata")
	}

	return schema.DecodeCatalog(data)
}

// SaveSchema writes the catalog
func (r *FileRepository) SaveSchema(ctx context.Context, store *schema.Store) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := schema.EncodeCatalog(store)
	if err != nil {
		return err
	}

	if err := util.WriteFile(r.fs, r.metaFile, data, 0644); err != nil {
		return errors.Wrap(err, errors.ErrTypeStorage, "failed to write metadata")
	}

	return nil
}

// LoadRows reads the data file of a table. A missing file is an empty table.
func (r *FileRepository) LoadRows(ctx context.Context, table types.TableSchema) ([]types.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := r.readFile(r.dataPath(table.Name))
	if err != nil {
		if errors.IsNotExist(err) {
			return []types.Row{}, nil
		}

		return nil, errors.Wrapf(err, errors.ErrTypeStorage, "failed to read data of table %q", table.Name)
	}

	return r.codec.Decode(table, data)
}

// SaveRows replaces the data file of a table
func (r *FileRepository) SaveRows(ctx context.Context, table types.TableSchema, rows []types.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := r.codec.Encode(table, rows)
	if err != nil {
		return err
	}

	if err := r.fs.MkdirAll(r.dataDir, 0755); err != nil {
		return errors.Wrap(err, errors.ErrTypeStorage, "failed to create data directory")
	}

	if err := util.WriteFile(r.fs, r.dataPath(table.Name), data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrTypeStorage, "failed to write data of table %q", table.Name)
	}

	return nil
}

// DeleteRows removes the data files of a table in every format, if any
func (r *FileRepository) DeleteRows(ctx context.Context, table string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, codec := range []Codec{JSONCodec{}, BSONCodec{}} {
		name := path.Join(r.dataDir, table+codec.Extension())
		if err := r.fs.Remove(name); err != nil && !errors.IsNotExist(err) {
			return errors.Wrapf(err, errors.ErrTypeStorage, "failed to delete data of table %q", table)
		}
	}

	return nil
}

// Close is a no-op; files are not held open between calls
func (r *FileRepository) Close() error {
	return nil
}

// Root returns the directory the repository writes to
func (r *FileRepository) Root() string {
	return r.fs.Root()
}

func (r *FileRepository) dataPath(table string) string {
	return path.Join(r.dataDir, table+r.codec.Extension())
}

func (r *FileRepository) readFile(name string) ([]byte, error) {
	return util.ReadFile(r.fs, name)
}
