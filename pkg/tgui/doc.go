// Package tgui provides small Telegram UI helpers:
//   - Safe HTML building for ParseMode="HTML" (auto escaping)
//   - Callback data helpers (action:payload)
//   - Rune-aware truncation for previews
package tgui
