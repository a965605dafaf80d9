// Package ledger manages the persisted credit balance gating paid operations.
//
// The balance lives in its own SQLite database under the state directory. The
// first-ever Load seeds a configurable starting grant; every later Load reads
// the stored value. Consume decrements atomically in SQL (UPDATE ... WHERE
// balance > 0), so there is no gap between the "can I proceed" check and the
// debit, and the balance can never go negative.
package ledger
