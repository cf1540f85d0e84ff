// Package resolve matches manifest file patterns against directory contents.
//
// A Resolver records, per source name, the paths of the first file group whose
// slots all match files in a searched directory. Resolution is deterministic
// for a fixed directory snapshot: listings are sorted and groups are tried in
// manifest order.
package resolve
