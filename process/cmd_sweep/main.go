package main

import "kopkar/process/sweep"

func main() { sweep.Run() }
