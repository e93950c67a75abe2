package course

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
)

// known data glitches in course catalogue exports
var (
	titleFixes = map[string]string{
		"Ultimate in": "Ultimate Investment Banking Course",
		"Complete <":  "Complete GST Course & Certification",
	}
	subjectFixes = map[string]string{
		"Business F": "Business Finance",
	}
	levelFixes = map[string]string{
		"ALLLevels":          LevelAll,
		"Beginner Level":     LevelBeginner,
		"Intermediate Level": LevelIntermediate,
		"Expert Level":       LevelAdvanced,
	}
	placeholderURL = "https://www.example.com/course"
)

// ImportCSV loads courses from a catalogue export. Expected header:
// course_id,title,subject,level,url,price,duration,is_paid,published_at,subscribers
// (column order is free; course_id is ignored and IDs are reassigned).
// Known data glitches are cleaned up on the fly. Returns the number of
// courses created.
func (svc *service) ImportCSV(ctx context.Context, r io.Reader, createdBy string) (int, error) {
	rdr := csv.NewReader(r)
	rdr.TrimLeadingSpace = true

	header, err := rdr.Read()
	if err != nil {
		return 0, errors.Wrap(err, "reading csv header")
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[core.CleanString(name, true /* lower */)] = i
	}
	for _, required := range []string{"title", "subject", "level"} {
		if _, ok := cols[required]; !ok {
			return 0, errors.Errorf("missing required csv column %q", required)
		}
	}
	field := func(rec []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(rec) {
			return ""
		}
		return core.CleanString(rec[idx])
	}

	var count int
	for line := 2; ; line++ {
		rec, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, errors.Wrapf(err, "reading csv line %d", line)
		}

		crs := cleanRecord(rec, field)
		crs.CreatedBy = createdBy
		now := time.Now().UTC()
		crs.CreatedAt = now
		crs.UpdatedAt = now
		if crs.Title == "" {
			continue
		}
		if _, err = svc.repo.CreateCourse(ctx, crs); err != nil {
			return count, errors.Wrapf(err, "importing csv line %d", line)
		}
		count++
	}
	return count, nil
}

const indexBatchSize = 100

// IndexCatalog pages through the published catalogue and adds one chunk per
// course under the catalogue scope, in batches.
func (svc *service) IndexCatalog(ctx context.Context, store core.VectorStore) (int, error) {
	var count int
	batch := make([]core.DocChunk, 0, indexBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := store.Add(ctx, batch...); err != nil {
			return errors.Wrap(err, "indexing course batch")
		}
		count += len(batch)
		batch = batch[:0]
		return nil
	}

	for page := 1; ; page++ {
		filter := QueryFilter{Page: page, PageSize: maxPageSize}
		courses, total, err := svc.Query(ctx, &filter, false)
		if err != nil {
			return count, err
		}
		for _, crs := range courses {
			batch = append(batch, courseChunk(crs))
			if len(batch) == indexBatchSize {
				if err = flush(); err != nil {
					return count, err
				}
			}
		}
		if page*maxPageSize >= total || len(courses) == 0 {
			break
		}
	}
	return count, flush()
}

func courseChunk(crs Course) core.DocChunk {
	return core.DocChunk{
		ID:   fmt.Sprintf("course_%d", crs.ID),
		Text: fmt.Sprintf("%s\n%s\n%s", crs.Title, crs.Subject, crs.Description),
		Metadata: map[string]interface{}{
			"user_id":     core.CatalogScope,
			"course_id":   crs.ID,
			"source":      crs.Title,
			"subject":     crs.Subject,
			"level":       crs.Level,
			"price":       crs.Price,
			"subscribers": crs.Subscribers,
		},
	}
}

func cleanRecord(rec []string, field func([]string, string) string) Course {
	crs := Course{
		Title:    field(rec, "title"),
		Subject:  field(rec, "subject"),
		Level:    field(rec, "level"),
		URL:      field(rec, "url"),
		Duration: field(rec, "duration"),
	}
	if fixed, ok := titleFixes[crs.Title]; ok {
		crs.Title = fixed
	}
	if fixed, ok := subjectFixes[crs.Subject]; ok {
		crs.Subject = fixed
	}
	if fixed, ok := levelFixes[crs.Level]; ok {
		crs.Level = fixed
	}
	if crs.URL == "https://www" {
		crs.URL = placeholderURL
	}

	crs.Description = field(rec, "description")
	if crs.Description == "" && crs.Title != "" {
		crs.Description = fmt.Sprintf("Learn about %s", strings.ToLower(crs.Title))
	}

	crs.Price, _ = strconv.ParseFloat(field(rec, "price"), 64)
	subs, _ := strconv.ParseInt(field(rec, "subscribers"), 10, 64)
	crs.Subscribers = subs
	crs.IsPaid, _ = strconv.ParseBool(field(rec, "is_paid"))
	crs.Published = field(rec, "published_at") != ""
	return crs
}
