/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/civiclens/webclient/cmd"

func main() {
	cmd.Execute()
}
