// Package logx configures taigabot's structured logging.
//
// Components receive a logx.Logger (a thin value wrapper over zerolog) and
// derive their own with With(logx.String("comp", ...)). The Service behind it
// owns the sinks and can be reconfigured at runtime:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Optional Telegram sink for operators (min-level + rate limiting)
package logx
