// SPDX-License-Identifier: MIT
package main

import "github.com/skaphos/grm/cmd/grm"

var execute = grm.Execute

func main() {
	execute()
}
