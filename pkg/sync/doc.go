/*
The sync package implements MirrorBall's view of a mirrored folder. It
fingerprints the files in a folder, compares the fingerprints of two folders,
and performs the local half of every file operation the peer can request.

Files are identified by their contents rather than their paths:
1) A Snapshot lists every visible file in a folder with a fingerprint of its
   contents. It's persisted in a hidden file at the root of the folder so
   that unchanged files don't have to be read again on the next scan.
2) Compare matches two snapshots by fingerprint. A fingerprint found at
   different paths is a rename, a fingerprint found on only one side is an
   extra file, and an extra file on each side at the same path is a
   modification.

Matching by fingerprint only works when each fingerprint appears at most once
per side, so FindDuplicates must come back empty for both snapshots before
Compare is meaningful.

Hidden files and directories (names starting with a dot) are never scanned.
Empty directories aren't tracked, and are pruned whenever a delete or rename
leaves one behind.
*/
package sync
