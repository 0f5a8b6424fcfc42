// Package logger provides a slog.Logger factory with environment-driven
// configuration and context attribute injection.
//
// The factory defaults to JSON output at info level for log aggregation;
// development setups switch to text output at debug level:
//
//	log := logger.New(logger.WithDevelopment("plankit"))
//	logger.SetAsDefault(log)
//
// Production configuration usually comes from the environment:
//
//	var cfg logger.Config
//	config.MustLoad(&cfg)
//	log := logger.New(logger.WithConfig(cfg), logger.WithProduction("plankit"))
//
// Context extractors inject request-scoped values (request ids, user ids)
// into every record logged with a *Context method:
//
//	log := logger.New(logger.WithContextExtractors(
//	    func(ctx context.Context) (slog.Attr, bool) {
//	        if id, ok := ctx.Value(requestIDKey).(string); ok {
//	            return slog.String("request_id", id), true
//	        }
//	        return slog.Attr{}, false
//	    },
//	))
package logger
