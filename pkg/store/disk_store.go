package store

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/bytedance/sonic"

	"github.com/testbed-portal/discovery-finder/pkg/logger"
)

const snapshotFile = "snapshot.json.gz"

// DiskStore keeps the snapshot as gzipped json under RootFolder.
type DiskStore struct {
	RootFolder string
}

func NewDiskStore(rootFolder string) *DiskStore {
	return &DiskStore{RootFolder: rootFolder}
}

func (d *DiskStore) GetFileName(name string) (string, string) {
	fileName := path.Join(d.RootFolder, name)
	tmpFileName := fmt.Sprintf("%s.tmp-%d", fileName, time.Now().UnixMilli())
	return fileName, tmpFileName
}

func (d *DiskStore) Load(_ context.Context) (*Snapshot, error) {
	fileName, _ := d.GetFileName(snapshotFile)
	file, err := os.Open(fileName)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	zipReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, err
	}
	defer zipReader.Close()

	snapshot := &Snapshot{}
	if err := sonic.ConfigDefault.NewDecoder(zipReader).Decode(snapshot); err != nil {
		return nil, fmt.Errorf("decode %s: %w", fileName, err)
	}
	return snapshot, nil
}

// Save writes to a temporary file first so a crash never leaves a partial
// snapshot behind.
func (d *DiskStore) Save(_ context.Context, snapshot *Snapshot) error {
	if err := os.MkdirAll(d.RootFolder, 0o755); err != nil {
		return err
	}
	fileName, tmpFileName := d.GetFileName(snapshotFile)
	file, err := os.Create(tmpFileName)
	if err != nil {
		return err
	}

	zipWriter := gzip.NewWriter(file)
	err = sonic.ConfigDefault.NewEncoder(zipWriter).Encode(snapshot)
	if err == nil {
		err = zipWriter.Close()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpFileName)
		return err
	}
	if err := os.Rename(tmpFileName, fileName); err != nil {
		return err
	}
	logger.Info().Str("component", "store").Str("file", fileName).Int("records", len(snapshot.Records)).Msg("saved snapshot")
	return nil
}
