// Package wlbl implements sender/recipient whitelists and blacklists with
// relay verification, and URI host lists.
//
//
// ## wlbl check (check.wlbl)
//
// The wlbl module decides whether the addresses of a message are explicitly
// trusted, explicitly distrusted or forged, and whether the message links to
// listed hosts. Lists are compiled once when the module is initialized.
//
// Example:
// ```
// check.wlbl {
// 	whitelist_from {
// 		*@example.org example.org
// 	}
// 	whitelist_from_rcvd {
// 		joe@example.com 203.0.113.0/24
// 		*@example.net mx.example.net
// 	}
// 	whitelist_allow_relays news@example.com
// 	blacklist_from *@spammer.example spam
// 	enlist_uri_host (shop) example.com other.com !cdn.other.com
// 	delist_uri_host (shop) example.com
// 	whitelist_uri_host example.org
// }
// ```
//
// ## Patterns
//
// Address patterns use `*` to match any run of characters. Patterns match
// anywhere inside the address, they are not anchored. Everything other than
// `*` is passed to the regular expression engine unchanged (syntax per
// https://golang.org/pkg/regexp/syntax/), so `.` matches any character
// unless escaped.
//
// ## Configuration directives
//
// Every list directive accepts one entry as inline arguments, a block with one
// entry per line, or both. Repeating a directive appends to the list.
//
// *Syntax:* whitelist_from _pattern_ _value_ ++
// *Syntax:* blacklist_from _pattern_ _value_ ++
// *Syntax:* whitelist_to _pattern_ _value_ ++
// *Syntax:* blacklist_to _pattern_ _value_ ++
// *Syntax:* all_spam_to _pattern_ _value_ ++
// *Syntax:* more_spam_to _pattern_ _value_
//
// Flat address lists. Each entry has exactly two fields; anything else is a
// configuration error.
//
// *Syntax:* whitelist_from_rcvd _pattern_ _relay_ ++
// *Syntax:* def_whitelist_from_rcvd _pattern_ _relay_
//
// Sender whitelists that must be confirmed by the relay chain. _relay_ is
// either a network (`203.0.113.0/24`, `[203.0.113.5]`, `10.1.`) that must
// contain the relay address, or a string that must occur in the relay rDNS
// name. The relay checked is the first untrusted relay or, if there is none,
// every trusted relay.
//
// *Syntax:* whitelist_allow_relays _pattern_...
//
// Senders that are allowed to fail relay confirmation. A forged verdict for a
// matching address becomes unknown. Matching is case-insensitive.
//
// *Syntax:* enlist_uri_host [(_key_)] _host_...
// *Syntax:* delist_uri_host [(_key_)] _host_...
//
// URI host lists by category. Hosts prefixed with `!` are excluded. Entries
// without a key are filed under ALL. Delisted hosts are removed from the
// category with the same key and from every category when delisted under ALL.
//
// *Syntax:* whitelist_uri_host _host_... ++
// *Syntax:* blacklist_uri_host _host_...
//
// Shorthands for the WHITE and BLACK categories.
//
// *Syntax:* base_domain heuristic|psl ++
// *Default:* heuristic
//
// How sender domains are reduced before being compared with relays.
// `heuristic` uses a small built-in suffix table, `psl` uses the public
// suffix list.
//
// *Syntax:* mailfrom_rcvd_match reverse_ip|rdns ++
// *Default:* reverse_ip
//
// What check_mailfrom_matches_rcvd compares the sender base domain with:
// the relay address in reverse (PTR) order, or the base domain of the relay
// rDNS name.
//
// *Syntax:* uri_host_strict _boolean_ ++
// *Default:* no
//
// Without this option the URI host checks report a hit when no URI host
// matched the category, which is the historical behavior. Enable it to only
// report actual matches.
//
// ## Checks
//
// check_from_in_whitelist, check_to_in_whitelist, check_from_in_blacklist,
// check_to_in_blacklist, check_from_in_list(_list_), check_to_in_list(_list_),
// check_to_in_all_spam, check_to_in_more_spam, check_mailfrom_matches_rcvd,
// check_from_in_default_whitelist, check_forged_in_whitelist,
// check_forged_in_default_whitelist, check_uri_host_listed(_key_),
// check_uri_host_in_whitelist, check_uri_host_in_blacklist.
package wlbl
