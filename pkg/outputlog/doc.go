// Package outputlog records several output streams of one process into a
// single file and reads them back.
//
// Each write to a stream becomes one record:
//
//	stream timestamp length: content\n
//
//   - stream: name matching [a-zA-Z0-9_./-]{1,64}, such as stdout or stderr
//   - timestamp: UTC time of the write, 2006-01-02T15:04:05.000000000Z
//   - length: byte length of content
//   - content: exactly length bytes, copied verbatim
//   - \n: a separator that is always written, even when content ends in a
//     line feed
//
// Because content is length-prefixed it may hold any bytes, including line
// feeds, carriage returns and NUL. Writes are recorded in the order they were
// made, so interleaving between streams survives a round trip:
//
//	stdout 2025-01-07T12:00:00.000000000Z 4: foo\n\n
//	stderr 2025-01-07T12:00:00.100000000Z 6: oops!\n\n
//	stdout 2025-01-07T12:00:00.200000000Z 7: 50%\r99%\n
//
// A process recording (see procassert/internal/recording) stores its output
// this way in output.log.
package outputlog
