package scheduler

import (
	"context"

	alertdomain "github.com/smallbiznis/karat/internal/alert/domain"
	ratedomain "github.com/smallbiznis/karat/internal/rate/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(
		func(s ratedomain.Service) RateRefresher { return s },
		func(s alertdomain.Service) AlertEvaluator { return s },
	),
	fx.Provide(New),
	fx.Invoke(NewScheduler),
)

func NewScheduler(lc fx.Lifecycle, sched *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go sched.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
