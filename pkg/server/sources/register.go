package sources

func init() {
	Register(AssetBitcoin, ParseBitcoin)
	Register(AssetGold, ParseGold)
	Register(AssetEquityIndex, ParseEquityIndex)
	Register(AssetMedianHome, ParseMedianHome)
}
