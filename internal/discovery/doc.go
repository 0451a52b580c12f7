// Package discovery models the prerequisite selector used when editing a
// challenge's discovery rules.
//
// A Manager belongs to one editor session and one subject challenge. It hands
// out widget ordinals, keeps the active selection of every widget in memory
// and maintains the ordered list of labels that is submitted to the CTF
// server. Rendered HTML and terminal output are projections of Snapshot.
package discovery
