// Package peers selects a join seed from a membership snapshot.
package peers
