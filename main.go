package main

import "github.com/ValentinKolb/dbnetget/cmd"

func main() {
	cmd.Execute()
}
