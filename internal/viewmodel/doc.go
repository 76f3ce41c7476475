// Package viewmodel describes how options are presented in a settings form
// and turns submitted form values back into option updates.
//
// A tree of Tabs and Blocks holds field nodes. Each field wraps one option and
// declares the form keys it owns; switches and dropdowns carry child fields
// that only matter when the parent enables them. Parser registers every field
// key and applies a submitted form in two passes so that an option spread
// over several keys, such as a min/max range, is set exactly once.
package viewmodel
