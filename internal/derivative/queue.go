// Package derivative is the producer side of the thumbnail/derivative
// cache collaborator the scan pipeline treats as external: it enqueues a
// job per new or changed record and leaves generation and storage to a
// worker process outside this module's scope.
package derivative

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/lumilio/scanner/internal/catalog"
)

const QueueName = "generate_derivative"

// ThumbnailJobArgs is the job payload a derivative-cache worker consumes
// to render and store a thumbnail for one catalog record.
type ThumbnailJobArgs struct {
	MediaID  string `json:"mediaId" river:"unique"`
	Path     string `json:"path"`
	Category string `json:"category"`
}

func (ThumbnailJobArgs) Kind() string { return "generate_thumbnail" }

func (ThumbnailJobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: QueueName}
}

// Queue is an insert-only River client: it never starts a worker loop in
// this process, since rendering and storing derivatives is explicitly
// someone else's job.
type Queue struct {
	client *river.Client[pgx.Tx]
}

func NewQueue(pool *pgxpool.Pool) (*Queue, error) {
	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Schema: "public",
		Queues: map[string]river.QueueConfig{
			QueueName: {MaxWorkers: 1}, // only relevant if this process also runs workers; it doesn't
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build derivative queue client: %w", err)
	}
	return &Queue{client: client}, nil
}

// EnqueueThumbnail records rec as needing a derivative render. Called
// after a record is newly staged with ThumbnailGenerated still false.
func (q *Queue) EnqueueThumbnail(ctx context.Context, rec *catalog.MediaRecord) error {
	_, err := q.client.Insert(ctx, ThumbnailJobArgs{
		MediaID:  rec.ID,
		Path:     rec.Path,
		Category: string(rec.Category),
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueue thumbnail job: %w", err)
	}
	return nil
}
