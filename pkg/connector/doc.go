// Package connector defines the transport-agnostic contract for talking to a
// TDengine-compatible time-series engine.
//
// A Connection carries commands to the engine and always answers with a
// Result (or QueryResult) value, even when the command could not be sent.
// Failures are distinguished by ErrorCode: positive codes come from the
// engine, negative codes are produced locally (closed connection, empty
// command, network failure, unreadable response).
//
// Adapters register themselves in init():
//
//	import _ "github.com/redbco/tdmeta/pkg/connector/rest"
//
// and the Manager resolves the configured connector type to an adapter:
//
//	m := connector.NewManager(connector.Config{Host: "10.0.0.5"})
//	conn, err := m.GetConnection(ctx, connector.Options{
//		connector.OptionResultTimeFormat: "utc",
//	})
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//
//	res := conn.Query(ctx, "sys_meta", "SELECT * FROM sys_store")
//	if res.HasError() {
//		return fmt.Errorf("query failed (%d): %s", res.ErrorCode(), res.Description())
//	}
package connector
