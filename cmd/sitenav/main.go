// Sitenav browses a static site through partial navigations: only the
// content region of each page is fetched into a live document.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
