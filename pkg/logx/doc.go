// Package logx configures floatwatch's structured logging.
//
// Logger is a thin wrapper on top of zerolog:
//   - console output stays readable (short timestamp + file:line caller)
//   - file output is JSON lines
//   - an optional chat sink forwards WARN+ records to a Telegram chat,
//     rate limited and never blocking the caller
package logx
