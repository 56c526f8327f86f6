// Package adapter holds what every external service adapter shares: the *Error
// failure shape with its retry classification, and a rate-limited JSON HTTP client.
//
// Classification is uniform. HTTP 429 and 5xx are retryable, as are requests that got
// no response at all. Every other 4xx, undecodable bodies and bodies failing their
// Validate method are not.
//
//	if err := client.GetJSON(ctx, "/tracks/"+code, nil, &out); err != nil {
//		if aerr, ok := adapter.As(err); ok && aerr.StatusCode == http.StatusNotFound {
//			return nil, nil
//		}
//		return nil, err
//	}
package adapter
