package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CourseFinisher flags medication courses that ran past their duration.
type CourseFinisher interface {
	FinishExpiredCourses(ctx context.Context) (int64, error)
}

/*
* Register the course job on spec, "5 0 * * *" runs every day at 00:05
* The job also runs once at start so a process that slept past midnight catches up
 */
func StartDailyScheduler(spec string, finisher CourseFinisher, log *zap.Logger) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		log.Info("Running daily medication course job")
		RunFinishCourses(context.Background(), finisher, log)
	}); err != nil {
		return nil, err
	}
	c.Start()
	go RunFinishCourses(context.Background(), finisher, log)
	return c, nil
}

func RunFinishCourses(ctx context.Context, finisher CourseFinisher, log *zap.Logger) int64 {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	n, err := finisher.FinishExpiredCourses(ctx)
	if err != nil {
		log.Error("Error from FinishExpiredCourses", zap.Error(err))
		return 0
	}
	log.Info("Medication courses finished", zap.Int64("count", n))
	return n
}
