// Package clock abstracts time.Now so code windows and timestamps can be
// pinned in tests with clock.Func.
package clock
