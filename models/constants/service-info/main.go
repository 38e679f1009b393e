package serviceInfo

import "fmt"

type ServiceInfo string

var (
	SERVICE_NAME        ServiceInfo = "GA4GH Variant Loader"
	SERVICE_WELCOME     ServiceInfo = "Welcome to the GA4GH variant loader!"
	SERVICE_DESCRIPTION ServiceInfo = "Deduplicates variants, variant sets and call sets across a VCF corpus and aggregates calls for indexing."
	SERVICE_CONTACT     ServiceInfo = "mailto:dcc-support@icgc.org"

	SERVICE_ARTIFACT    ServiceInfo = "ga4gh-loader"
	SERVICE_VERSION     ServiceInfo = "0.1.0"
	SERVICE_TYPE_NO_VER ServiceInfo = ServiceInfo(fmt.Sprintf("org.icgc.dcc:%s", SERVICE_ARTIFACT))
	SERVICE_ID          ServiceInfo = SERVICE_TYPE_NO_VER
	SERVICE_TYPE        ServiceInfo = ServiceInfo(fmt.Sprintf("%s:%s", SERVICE_TYPE_NO_VER, SERVICE_VERSION))
)
