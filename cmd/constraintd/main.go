// Command constraintd loads a constraint library and runs the activation
// core around it.
package main

func main() {
	Execute()
}
