package main

import "github.com/prayagsingh/bookings/cmd"

func main() {
	cmd.Execute()
}
