// Package factory provides a small generic registry used to instantiate
// pluggable modules (predictors, metrics sinks, report stores) from
// configuration. A module is a type string plus a map of raw settings;
// factories decode the settings into typed structs with Decode.
//
// Example usage:
//
//	reg := factory.NewRegistry[prediction.Predictor]()
//	reg.Register("mock", func(conf map[string]any) (prediction.Predictor, error) {
//	    var c prediction.MockConfig
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return prediction.NewMockPredictor(c), nil
//	})
//	p, err := reg.Create(factory.ModuleConfig{Type: "mock", Conf: map[string]any{"ratio": 0.8}})
package factory
