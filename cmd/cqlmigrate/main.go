// Command cqlmigrate applies CQL schema migrations across a Cassandra-family
// cluster. See the root command's help text for usage.
package main

func main() {
	Execute()
}
