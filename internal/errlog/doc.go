// Package errlog keeps the on-disk diagnostic log of failed requests.
//
// Each failure is one line:
//
//	2006-01-02 15:04:05 KIND path – message
//
// The file never grows past MaxLines; every append trims it back to the
// newest entries. Tail reads the end of the file with a ring buffer so the
// whole file never has to be held in memory.
package errlog
