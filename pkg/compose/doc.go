/*
Package compose renders the two bootstrap artifacts: the consul agent
configuration document (JSON) and the supervisord program descriptor
(INI). Rendering is pure; writing the artifacts, assigning ownership
bits, and reloading the supervisor are the caller's responsibility.

The output formats are compatibility surfaces. Key names, fixed
values (client_addr, ui, program name, stopsignal) and the
present-only-when-set behavior of bootstrap_expect and retry_join
must not drift.
*/
package compose
