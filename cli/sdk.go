package cli

import "github.com/absmach/cortex/pkg/sdk"

var (
	DefTLSVerification = false
	DefNodeURL         = "http://localhost:7080"
)

var csdk sdk.SDK

func SetSDK(s sdk.SDK) {
	csdk = s
}
