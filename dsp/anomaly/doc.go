// Package anomaly finds and optionally repairs two kinds of corruption in
// raw correlator lag vectors:
//
//   - block discontinuities, where a whole 1024-lag hardware block is offset
//     from its neighbours, and
//   - point spikes, where a single lag departs from its neighbourhood.
//
// Detection never fails: the worst outcome is a Result marked
// Unrepairable, which callers treat as bad data.
package anomaly
