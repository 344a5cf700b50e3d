package main

import "github.com/frahmantamala/salescrm/cmd"

func main() {
	cmd.Execute()
}
