// Package ui is the Bubble Tea terminal interface for browsing e621 and e926.
//
// Model owns one state struct per view (posts, comments, pools, wiki, mail,
// followed tags, error log). Network calls run as tea.Cmds bounded by the
// request timeout and report back through typed messages; failures become
// errMsg values shown as a toast in the header and recorded in the error log.
//
// Account state (user, unread mail, followed-tag counts) is not fetched by the
// UI. A background poller writes it to state.Store and the model copies the
// latest snapshot on every tick.
//
// Search and wiki prompts are modals backed by suggest.Suggester, which mixes
// local search history with the site's tag autocomplete.
package ui
