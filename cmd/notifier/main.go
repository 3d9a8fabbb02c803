// cmd/notifier/main.go
package main

func main() {
	Execute()
}
