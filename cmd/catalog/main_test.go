package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/garyellow/course-advisor/internal/config"
	"github.com/garyellow/course-advisor/internal/r2client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCSV = `course_id,course_title,url,is_paid,price,num_subscribers,num_reviews,num_lectures,level,content_duration,published_timestamp,subject
1,Learn Python Programming,https://example.com/1,True,200,1200,40,30,Beginner Level,4,2017-01-18T20:58:58Z,Web Development
2,Guitar for Beginners,https://example.com/2,False,Free,900,15,12,Beginner Level,2,2014-07-01T08:00:00Z,Musical Instruments
2,Guitar for Beginners,https://example.com/2,False,Free,900,15,12,Beginner Level,2,2014-07-01T08:00:00Z,Musical Instruments
x,Broken,,False,0,0,0,0,All Levels,0,,Business Finance
`

func writeCSV(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "courses.csv")
	require.NoError(t, os.WriteFile(path, []byte(testCSV), 0o600))
	return path
}

func testConfig(dir string) *config.Config {
	return &config.Config{
		DataDir:             filepath.Join(dir, "data"),
		CatalogSource:       filepath.Join(dir, "courses.csv"),
		DescriptionCacheTTL: time.Hour,
	}
}

func TestImportThenStats(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeCSV(t, dir)
	cfg := testConfig(dir)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, run(ctx, cfg, "import", nil, &out))
	assert.Contains(t, out.String(), "Imported 2 courses")
	assert.Contains(t, out.String(), "Skipped 1 invalid rows and 1 duplicates")

	out.Reset()
	require.NoError(t, run(ctx, cfg, "stats", nil, &out))
	assert.Contains(t, out.String(), "2 (1 paid, 1 free)")
	assert.Contains(t, out.String(), "Subject: musical instruments")
	assert.Contains(t, out.String(), cfg.CatalogSource)
}

func TestRun_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := testConfig(dir)
	ctx := context.Background()

	require.Error(t, run(ctx, cfg, "unknown", nil, io.Discard))
	require.Error(t, run(ctx, cfg, "import", []string{"-source", filepath.Join(dir, "missing.csv")}, io.Discard))
	require.ErrorContains(t, run(ctx, cfg, "publish", nil, io.Discard), "R2 credentials")
}

type fakeStore struct {
	objects map[string]r2client.ObjectInfo
	bodies  map[string][]byte
	uploads int
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string]r2client.ObjectInfo{}, bodies: map[string][]byte{}}
}

func (s *fakeStore) Stat(_ context.Context, key string) (r2client.ObjectInfo, error) {
	info, ok := s.objects[key]
	if !ok {
		return r2client.ObjectInfo{}, r2client.ErrNotFound
	}
	return info, nil
}

func (s *fakeStore) Upload(_ context.Context, obj r2client.Object) (string, error) {
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return "", err
	}
	s.uploads++
	etag := fmt.Sprintf("etag-%d", s.uploads)
	s.bodies[obj.Key] = data
	s.objects[obj.Key] = r2client.ObjectInfo{
		ETag:        etag,
		Size:        int64(len(data)),
		ContentType: obj.ContentType,
		Metadata:    obj.Metadata,
	}
	return etag, nil
}

func TestRunPublish(t *testing.T) {
	t.Parallel()
	path := writeCSV(t, t.TempDir())
	store := newFakeStore()

	var out bytes.Buffer
	require.NoError(t, runPublish(context.Background(), store, path, defaultPublishKey, false, &out))
	assert.Equal(t, r2client.ContentTypeZstd, store.objects[defaultPublishKey].ContentType)
	assert.Len(t, store.objects[defaultPublishKey].Metadata[r2client.MetaSourceSHA256], 64)
	assert.Contains(t, out.String(), "Published 2 courses")

	rc, err := r2client.NewDecompressReader(bytes.NewReader(store.bodies[defaultPublishKey]))
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()
	plain, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, testCSV, string(plain))
}

func TestRunPublish_SkipsUnchanged(t *testing.T) {
	t.Parallel()
	path := writeCSV(t, t.TempDir())
	store := newFakeStore()
	ctx := context.Background()

	require.NoError(t, runPublish(ctx, store, path, defaultPublishKey, false, io.Discard))

	var out bytes.Buffer
	require.NoError(t, runPublish(ctx, store, path, defaultPublishKey, false, &out))
	assert.Equal(t, 1, store.uploads)
	assert.Contains(t, out.String(), "already up to date (etag etag-1)")

	require.NoError(t, runPublish(ctx, store, path, defaultPublishKey, true, io.Discard))
	assert.Equal(t, 2, store.uploads, "force uploads again")
}

type failingStat struct{ *fakeStore }

func (failingStat) Stat(context.Context, string) (r2client.ObjectInfo, error) {
	return r2client.ObjectInfo{}, errors.New("access denied")
}

func TestRunPublish_StatFailure(t *testing.T) {
	t.Parallel()
	path := writeCSV(t, t.TempDir())
	store := failingStat{newFakeStore()}

	err := runPublish(context.Background(), store, path, defaultPublishKey, false, io.Discard)
	require.ErrorContains(t, err, "access denied")
	assert.Zero(t, store.uploads)
}

func TestRunPublish_RejectsCompressedInput(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "courses.csv.zst")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	err := runPublish(context.Background(), newFakeStore(), path, defaultPublishKey, false, io.Discard)
	require.ErrorContains(t, err, "already compressed")
}
